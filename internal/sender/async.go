package sender

import (
	"context"
	"log/slog"
	"time"

	"sudooom.im.typing/internal/typing"
	"sudooom.im.typing/internal/workerpool"
	"sudooom.im.typing/pkg/proto"
)

// Async 把发送移出事件循环
// 单个 worker 保证同一会话的 start/stop 按提交顺序到达
type Async struct {
	inner   typing.Sender
	pool    *workerpool.Pool
	timeout time.Duration
	logger  *slog.Logger
}

// NewAsync 包装任意发送器
func NewAsync(inner typing.Sender, queueSize int, timeout time.Duration) *Async {
	logger := slog.Default()
	return &Async{
		inner:   inner,
		pool:    workerpool.New("typing-sender", 1, queueSize, logger),
		timeout: timeout,
		logger:  logger,
	}
}

// Send 入队后立即返回；队列已满或已关闭时丢弃
func (a *Async) Send(ctx context.Context, notice *proto.TypingNotice) error {
	n := *notice
	ok := a.pool.TrySubmit(func() {
		sendCtx := context.Background()
		if a.timeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(sendCtx, a.timeout)
			defer cancel()
		}
		if err := a.inner.Send(sendCtx, &n); err != nil {
			a.logger.Warn("Typing notice failed", "to", n.To, "op", n.Op, "error", err)
		}
	})
	if !ok {
		a.logger.Warn("Typing sender queue full, dropping notice", "to", n.To, "op", n.Op)
	}
	return nil
}

// Close 等待已入队的通知发送完成
func (a *Async) Close() {
	a.pool.Shutdown()
}
