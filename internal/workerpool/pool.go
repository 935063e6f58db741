package workerpool

import (
	"log/slog"
	"sync"
)

// Task 定义任务函数类型
type Task func()

// Pool Worker Pool 实现
// workers 为 1 时任务按提交顺序串行执行
type Pool struct {
	name      string
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	closeMu   sync.RWMutex
	closed    bool
	logger    *slog.Logger
}

// New 创建一个新的 Worker Pool
// workers: worker 数量
// queueSize: 任务队列大小
func New(name string, workers int, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := &Pool{
		name:      name,
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		logger:    logger,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Debug("Worker pool started",
		"pool", name,
		"workers", workers,
		"queue_size", queueSize)

	return pool
}

// worker 工作协程，队列关闭后处理完剩余任务再退出
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panic recovered",
				"pool", p.name,
				"worker_id", id,
				"panic", r)
		}
	}()
	task()
}

// Submit 提交任务到 Worker Pool
// 如果队列满了，会阻塞直到有空位；已关闭时返回 false
func (p *Pool) Submit(task Task) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return false
	}
	p.taskQueue <- task
	return true
}

// TrySubmit 尝试提交任务，如果队列满了立即返回 false
func (p *Pool) TrySubmit(task Task) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return false
	}
	select {
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

// Pending 队列中等待执行的任务数
func (p *Pool) Pending() int {
	return len(p.taskQueue)
}

// Shutdown 优雅关闭 Worker Pool
// 等待所有已提交任务完成
func (p *Pool) Shutdown() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.closeMu.Unlock()

	p.wg.Wait()
	p.logger.Debug("Worker pool shutdown completed", "pool", p.name)
}
