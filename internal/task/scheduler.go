package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sudooom.im.typing/internal/workerpool"
)

// Scheduler 任务调度器：时钟协程推进时间轮，到期任务交给工作协程池
type Scheduler struct {
	wheel       *TimeWheel
	workerCount int
	pool        *workerpool.Pool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      *slog.Logger
	running     bool
	runningMu   sync.RWMutex
}

// NewScheduler 创建任务调度器
func NewScheduler(interval time.Duration, slotCount, workerCount int) *Scheduler {
	if workerCount <= 0 {
		workerCount = 4
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		wheel:       NewTimeWheel(interval, slotCount),
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      slog.Default(),
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return fmt.Errorf("调度器已经在运行中")
	}
	s.running = true
	s.runningMu.Unlock()

	s.pool = workerpool.New("timer", s.workerCount, s.workerCount*64, s.logger)

	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("Timer scheduler started",
		"tick", s.wheel.Interval(),
		"workerCount", s.workerCount)

	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.wheel.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			for _, task := range s.wheel.Tick() {
				s.pool.Submit(task.Run)
			}
		}
	}
}

// Stop 停止调度器，未到期任务被丢弃
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return
	}
	s.running = false
	s.runningMu.Unlock()

	s.cancel()
	s.wg.Wait()
	// 已到期的回调执行完再返回
	s.pool.Shutdown()

	s.logger.Info("Timer scheduler stopped")
}

// AddTask 添加任务
func (s *Scheduler) AddTask(task *Task) error {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	if !s.running {
		return fmt.Errorf("调度器未运行")
	}
	if task == nil {
		return fmt.Errorf("任务不能为空")
	}
	if task.ID == "" {
		return fmt.Errorf("任务ID不能为空")
	}

	s.wheel.AddTask(task)
	return nil
}

// RemoveTask 删除任务
func (s *Scheduler) RemoveTask(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("任务ID不能为空")
	}
	if !s.wheel.RemoveTask(taskID) {
		return fmt.Errorf("任务不存在: %s", taskID)
	}
	return nil
}

// AfterFunc 在 delay 之后执行 fn，返回可用于取消的任务 ID
func (s *Scheduler) AfterFunc(delay time.Duration, target string, fn func()) (string, error) {
	id := uuid.NewString()
	if err := s.AddTask(NewTask(id, target, delay, fn)); err != nil {
		return "", err
	}
	return id, nil
}

// Cancel 取消尚未到期的任务
func (s *Scheduler) Cancel(taskID string) bool {
	return s.wheel.RemoveTask(taskID)
}

// IsRunning 检查调度器是否运行中
func (s *Scheduler) IsRunning() bool {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	return s.running
}

// GetStats 获取调度器统计信息
func (s *Scheduler) GetStats() map[string]any {
	return map[string]any{
		"running":        s.IsRunning(),
		"currentSlot":    s.wheel.GetCurrentSlot(),
		"totalTaskCount": s.wheel.GetTotalTaskCount(),
		"workerCount":    s.workerCount,
	}
}
