package typing

import (
	"context"
	"log/slog"
	"time"

	"sudooom.im.typing/pkg/proto"
)

// Config 输入状态时间参数
type Config struct {
	// StartedExpiryPeriod 远端未续期时自动过期
	StartedExpiryPeriod time.Duration
	// StartedSendFrequency 持续输入时重复发送 start 的最小间隔
	StartedSendFrequency time.Duration
	// StoppedWaitPeriod 最后一次输入后自动发送 stop 的等待时长
	StoppedWaitPeriod time.Duration
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		StartedExpiryPeriod:  15 * time.Second,
		StartedSendFrequency: 10 * time.Second,
		StoppedWaitPeriod:    5 * time.Second,
	}
}

// Sender 上行通知发送，失败只记录不重试
type Sender interface {
	Send(ctx context.Context, notice *proto.TypingNotice) error
}

// Debouncer 本地输入意图去抖
// 非并发安全，由 Coordinator 的事件循环串行驱动
type Debouncer struct {
	cfg     Config
	self    int64
	compose ComposeState
	sender  Sender
	timers  Timers
	clock   Clock
	logger  *slog.Logger

	current   RecipientKey // 已发出 start 且未发出 stop 的收件人
	lastStart time.Time
	stopTimer TimerHandle
	stopGen   uint64
}

// NewDebouncer 创建去抖器
func NewDebouncer(cfg Config, self int64, compose ComposeState, sender Sender, timers Timers, clock Clock) *Debouncer {
	return &Debouncer{
		cfg:     cfg,
		self:    self,
		compose: compose,
		sender:  sender,
		timers:  timers,
		clock:   clock,
		logger:  slog.Default(),
	}
}

// OnComposeInput 输入框内容变化
func (d *Debouncer) OnComposeInput() {
	now := d.clock.Now()
	if d.current.IsZero() ||
		d.current != d.compose.Recipient() ||
		now.Sub(d.lastStart) > d.cfg.StartedSendFrequency {
		d.lastStart = now
		d.CheckAndSend(proto.OpStart)
	}

	// 无论是否发送，都把自动 stop 推迟到最后一次输入之后
	d.cancelStopTimer()
	if !d.current.IsZero() {
		d.scheduleStopTimer()
	}
}

// OnComposeRecipientChanged 收件人变化，旧会话立即收到 stop
func (d *Debouncer) OnComposeRecipientChanged() {
	if d.current.IsZero() || d.current == d.compose.Recipient() {
		return
	}
	d.lastStart = d.clock.Now()
	d.CheckAndSend(proto.OpStart)
	if !d.current.IsZero() {
		d.scheduleStopTimer()
	}
}

// OnComposeClosed 输入框关闭或消息已发送
func (d *Debouncer) OnComposeClosed() {
	d.CheckAndSend(proto.OpStop)
}

// CheckAndSend 根据当前输入框状态决定发送 start 或 stop
func (d *Debouncer) CheckAndSend(op proto.Op) {
	recipient := d.compose.Recipient()
	nonEmpty := d.compose.HasMessageContent()

	if !d.current.IsZero() && (op == proto.OpStop || d.current != recipient) {
		d.send(d.current, proto.OpStop)
		d.cancelStopTimer()
		d.current = ""
	}

	if op == proto.OpStart && !recipient.IsZero() && nonEmpty {
		d.current = recipient
		d.send(recipient, proto.OpStart)
	}
}

// Outstanding 当前已发出 start 的收件人
func (d *Debouncer) Outstanding() (RecipientKey, bool) {
	return d.current, !d.current.IsZero()
}

// HasStopTimer 是否有待触发的自动 stop
func (d *Debouncer) HasStopTimer() bool {
	return d.stopTimer != ""
}

// Close 取消待触发的定时器，不发送 stop
func (d *Debouncer) Close() {
	d.cancelStopTimer()
}

// scheduleStopTimer 定时器不可用时立即发送 stop，不留下无人结束的 start
func (d *Debouncer) scheduleStopTimer() {
	gen := d.stopGen
	d.stopTimer = d.timers.Schedule(d.cfg.StoppedWaitPeriod, func() {
		if gen != d.stopGen {
			return
		}
		d.stopTimer = ""
		d.CheckAndSend(proto.OpStop)
	})
	if d.stopTimer == "" {
		d.logger.Error("Stop timer unavailable, sending stop now", "to", d.current)
		d.CheckAndSend(proto.OpStop)
	}
}

func (d *Debouncer) cancelStopTimer() {
	d.stopGen++
	if d.stopTimer != "" {
		d.timers.Cancel(d.stopTimer)
		d.stopTimer = ""
	}
}

func (d *Debouncer) send(to RecipientKey, op proto.Op) {
	notice := &proto.TypingNotice{
		To:        to.String(),
		Op:        op,
		From:      d.self,
		Timestamp: d.clock.Now().UnixMilli(),
	}
	if err := d.sender.Send(context.Background(), notice); err != nil {
		d.logger.Warn("Failed to send typing notice", "to", to, "op", op, "error", err)
		return
	}
	d.logger.Debug("Typing notice sent", "to", to, "op", op)
}
