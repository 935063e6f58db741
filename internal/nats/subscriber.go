package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"sudooom.im.typing/pkg/proto"
)

// EventHandler 远端输入状态事件处理器
type EventHandler interface {
	HandleRemoteEvent(ctx context.Context, event *proto.TypingEvent) error
}

// EventSubscriber 订阅发给本地用户的输入状态事件
// 单个 worker 保证事件按到达顺序交给协调器
type EventSubscriber struct {
	nc           *nats.Conn
	handler      EventHandler
	subject      string
	bufferSize   int
	logger       *slog.Logger
	subscription *nats.Subscription
	msgChan      chan *nats.Msg
	wg           sync.WaitGroup
	cancelFunc   context.CancelFunc
}

// NewEventSubscriber 创建事件订阅器
func NewEventSubscriber(nc *nats.Conn, userID int64, handler EventHandler, bufferSize int) *EventSubscriber {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	return &EventSubscriber{
		nc:         nc,
		handler:    handler,
		subject:    BuildTypingUserSubject(userID),
		bufferSize: bufferSize,
		logger:     slog.Default(),
	}
}

// Start 启动订阅
func (s *EventSubscriber) Start(ctx context.Context) error {
	s.msgChan = make(chan *nats.Msg, s.bufferSize)

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.wg.Add(1)
	go s.worker(workerCtx)

	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		select {
		case s.msgChan <- msg:
		default:
			// 过期的输入状态没有重放价值，直接丢弃
			s.logger.Warn("Typing event buffer full, dropping event", "bufferSize", s.bufferSize)
		}
	})
	if err != nil {
		cancel()
		s.wg.Wait()
		return err
	}

	s.subscription = sub
	s.logger.Info("NATS typing subscriber started", "subject", s.subject, "bufferSize", s.bufferSize)
	return nil
}

func (s *EventSubscriber) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.msgChan:
			s.handleMessage(ctx, msg.Data)
		}
	}
}

// handleMessage 解码并转交，解码失败只记录
func (s *EventSubscriber) handleMessage(ctx context.Context, data []byte) {
	var event proto.TypingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn("Failed to unmarshal typing event", "error", err)
		return
	}

	if err := s.handler.HandleRemoteEvent(ctx, &event); err != nil {
		s.logger.Warn("Failed to handle typing event", "op", event.Op, "error", err)
	}
}

// Stop 停止订阅
func (s *EventSubscriber) Stop() {
	if s.subscription != nil {
		if err := s.subscription.Unsubscribe(); err != nil {
			s.logger.Error("Failed to unsubscribe", "error", err)
		}
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()

	s.logger.Info("NATS typing subscriber stopped")
}

// GetBufferUsage 获取缓冲区使用情况
func (s *EventSubscriber) GetBufferUsage() (current int, capacity int) {
	if s.msgChan == nil {
		return 0, 0
	}
	return len(s.msgChan), cap(s.msgChan)
}
