package task

import (
	"sync"
	"time"
)

const (
	// DefaultSlotCount 默认槽位数量
	DefaultSlotCount = 1000

	// DefaultTickInterval 默认刻度
	DefaultTickInterval = time.Millisecond
)

// TimeWheel 哈希时间轮
// 超过一圈的延迟通过 rounds 计数；任务在截止时间之后的第一次推进时触发，不会提前
type TimeWheel struct {
	mu          sync.Mutex
	interval    time.Duration
	slots       []*Slot
	currentSlot int
	index       map[string]int // taskID -> 槽位
	lastTick    time.Time
	now         func() time.Time
}

// NewTimeWheel 创建时间轮
func NewTimeWheel(interval time.Duration, slotCount int) *TimeWheel {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if slotCount <= 0 {
		slotCount = DefaultSlotCount
	}

	tw := &TimeWheel{
		interval: interval,
		slots:    make([]*Slot, slotCount),
		index:    make(map[string]int),
		now:      time.Now,
	}
	tw.lastTick = tw.now()
	for i := range tw.slots {
		tw.slots[i] = NewSlot()
	}

	return tw
}

// Interval 刻度
func (tw *TimeWheel) Interval() time.Duration {
	return tw.interval
}

// ticksFor 从上一次推进算起，到达截止时间所需的推进次数
func (tw *TimeWheel) ticksFor(deadline time.Time) int {
	d := deadline.Sub(tw.lastTick)
	if d <= tw.interval {
		return 1
	}
	return int((d + tw.interval - 1) / tw.interval)
}

// AddTask 添加任务到时间轮，同 ID 任务会被替换
// 截止时间为加入时刻加上 Delay
func (tw *TimeWheel) AddTask(task *Task) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if slot, ok := tw.index[task.ID]; ok {
		tw.slots[slot].RemoveTask(task.ID)
	}

	task.Deadline = tw.now().Add(task.Delay)
	tw.place(task)
}

func (tw *TimeWheel) place(task *Task) {
	n := len(tw.slots)
	ticks := tw.ticksFor(task.Deadline)
	task.rounds = (ticks - 1) / n
	target := (tw.currentSlot + ticks) % n

	tw.slots[target].AddTask(task)
	tw.index[task.ID] = target
}

// RemoveTask 从时间轮删除任务
func (tw *TimeWheel) RemoveTask(taskID string) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	slot, ok := tw.index[taskID]
	if !ok {
		return false
	}
	delete(tw.index, taskID)
	return tw.slots[slot].RemoveTask(taskID)
}

// Tick 推进一格，返回到期任务
// 时钟抖动导致推进早于截止时间的任务重新放回时间轮
func (tw *TimeWheel) Tick() []*Task {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	now := tw.now()
	tw.lastTick = now
	tw.currentSlot = (tw.currentSlot + 1) % len(tw.slots)

	expired := tw.slots[tw.currentSlot].Expire()
	due := expired[:0]
	for _, task := range expired {
		delete(tw.index, task.ID)
		if task.Deadline.After(now) {
			tw.place(task)
			continue
		}
		due = append(due, task)
	}
	return due
}

// GetCurrentSlot 获取当前槽位索引
func (tw *TimeWheel) GetCurrentSlot() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return tw.currentSlot
}

// GetTotalTaskCount 获取所有槽位的任务总数
func (tw *TimeWheel) GetTotalTaskCount() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return len(tw.index)
}
