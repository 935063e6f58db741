package typing

import (
	"log/slog"
	"time"

	"sudooom.im.typing/internal/task"
)

// Clock 时间来源
type Clock interface {
	Now() time.Time
}

// TimerHandle 定时器句柄，零值表示没有定时器
type TimerHandle string

// Timers 一次性可取消定时器
// Cancel 之后回调不得再生效，调用方另以代数校验兜底
type Timers interface {
	Schedule(delay time.Duration, fn func()) TimerHandle
	Cancel(h TimerHandle)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 系统时钟
func SystemClock() Clock { return systemClock{} }

// WheelTimers 基于时间轮调度器的 Timers 实现
type WheelTimers struct {
	scheduler *task.Scheduler
	target    string
	logger    *slog.Logger
}

// NewWheelTimers 创建定时器，target 仅用于日志
func NewWheelTimers(scheduler *task.Scheduler, target string) *WheelTimers {
	return &WheelTimers{
		scheduler: scheduler,
		target:    target,
		logger:    slog.Default(),
	}
}

// Schedule 调度器已停止时返回空句柄
func (w *WheelTimers) Schedule(delay time.Duration, fn func()) TimerHandle {
	id, err := w.scheduler.AfterFunc(delay, w.target, fn)
	if err != nil {
		w.logger.Error("Failed to schedule typing timer", "target", w.target, "delay", delay, "error", err)
		return ""
	}
	return TimerHandle(id)
}

func (w *WheelTimers) Cancel(h TimerHandle) {
	if h == "" {
		return
	}
	w.scheduler.Cancel(string(h))
}
