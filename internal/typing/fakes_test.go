package typing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sudooom.im.typing/pkg/proto"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// manualTimers 手动推进的时钟与定时器
type manualTimers struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending map[TimerHandle]*manualTimer
	leaky   bool // Cancel 不生效，用于验证代数校验
	refuse  bool // Schedule 返回空句柄，模拟调度器已停止
}

type manualTimer struct {
	at  time.Time
	seq int
	fn  func()
}

func newManualTimers() *manualTimers {
	return &manualTimers{now: epoch, pending: make(map[TimerHandle]*manualTimer)}
}

func (m *manualTimers) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTimers) Schedule(delay time.Duration, fn func()) TimerHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refuse {
		return ""
	}
	m.seq++
	h := TimerHandle(fmt.Sprintf("timer-%d", m.seq))
	m.pending[h] = &manualTimer{at: m.now.Add(delay), seq: m.seq, fn: fn}
	return h
}

func (m *manualTimers) Cancel(h TimerHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.leaky {
		delete(m.pending, h)
	}
}

func (m *manualTimers) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance 推进时间，按到期顺序执行回调
func (m *manualTimers) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var nextHandle TimerHandle
		var next *manualTimer
		for h, t := range m.pending {
			if t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
				next, nextHandle = t, h
			}
		}
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		delete(m.pending, nextHandle)
		m.now = next.at
		m.mu.Unlock()

		next.fn()
	}
}

// recordingSender 记录发出的通知
type recordingSender struct {
	mu      sync.Mutex
	notices []proto.TypingNotice
	err     error
}

func (s *recordingSender) Send(ctx context.Context, notice *proto.TypingNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, *notice)
	return s.err
}

func (s *recordingSender) ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, string(n.Op)+":"+n.To)
	}
	return out
}

func (s *recordingSender) count(op proto.Op, to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, notice := range s.notices {
		if notice.Op == op && notice.To == to {
			n++
		}
	}
	return n
}

var errSendFailed = errors.New("503 service unavailable")

// recordingDisplay 记录展示更新
type recordingDisplay struct {
	mu      sync.Mutex
	updates []proto.TypingUpdate
}

func (d *recordingDisplay) ShowTyping(update *proto.TypingUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, *update)
}

func (d *recordingDisplay) last() (proto.TypingUpdate, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.updates) == 0 {
		return proto.TypingUpdate{}, 0
	}
	return d.updates[len(d.updates)-1], len(d.updates)
}

// recordingListener 记录会话变化
type recordingListener struct {
	mu      sync.Mutex
	changes map[RecipientKey][]int64
}

func (l *recordingListener) OnTypingChanged(key RecipientKey, users []int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.changes == nil {
		l.changes = make(map[RecipientKey][]int64)
	}
	l.changes[key] = users
}

func (l *recordingListener) get(key RecipientKey) ([]int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	users, ok := l.changes[key]
	return users, ok
}
