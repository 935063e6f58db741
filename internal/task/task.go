package task

import "time"

// Task 时间轮中的延迟回调
// Target 标识回调所属的会话，仅用于日志
type Task struct {
	ID       string
	Target   string
	Delay    time.Duration
	Fn       func()
	Deadline time.Time // 加入时间轮时确定

	rounds int // 剩余圈数，由时间轮维护
}

// NewTask 创建延迟回调
func NewTask(id, target string, delay time.Duration, fn func()) *Task {
	return &Task{
		ID:     id,
		Target: target,
		Delay:  delay,
		Fn:     fn,
	}
}

// Run 执行回调，Fn 为空时什么都不做
func (t *Task) Run() {
	if t.Fn != nil {
		t.Fn()
	}
}
