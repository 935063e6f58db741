package nats

import (
	"context"
	"sync"
	"testing"

	"sudooom.im.typing/pkg/proto"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []proto.TypingEvent
}

func (h *recordingHandler) HandleRemoteEvent(ctx context.Context, event *proto.TypingEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *event)
	return nil
}

func TestBuildTypingUserSubject(t *testing.T) {
	if got := BuildTypingUserSubject(42); got != "im.typing.user.42" {
		t.Errorf("期望 im.typing.user.42, 实际 = %s", got)
	}
}

func TestSubscriberDecodesEvent(t *testing.T) {
	h := &recordingHandler{}
	s := NewEventSubscriber(nil, 1, h, 0)

	s.handleMessage(context.Background(), []byte(`{
		"op": "start",
		"sender": {"user_id": 2, "email": "bob@example.com"},
		"recipients": [{"user_id": 1}, {"user_id": 2}]
	}`))

	if len(h.events) != 1 {
		t.Fatalf("期望 1 个事件, 实际 = %d", len(h.events))
	}
	ev := h.events[0]
	if ev.Op != proto.OpStart || ev.Sender.UserID != 2 || len(ev.Recipients) != 2 {
		t.Errorf("解码结果错误: %+v", ev)
	}
	if s.subject != "im.typing.user.1" {
		t.Errorf("期望订阅 im.typing.user.1, 实际 = %s", s.subject)
	}
}

func TestSubscriberDropsGarbage(t *testing.T) {
	h := &recordingHandler{}
	s := NewEventSubscriber(nil, 1, h, 0)

	s.handleMessage(context.Background(), []byte("not json"))

	if len(h.events) != 0 {
		t.Errorf("无法解码的消息应被丢弃, 实际 = %d", len(h.events))
	}
	if cur, capacity := s.GetBufferUsage(); cur != 0 || capacity != 0 {
		t.Errorf("未启动时缓冲区应为空, 实际 = %d/%d", cur, capacity)
	}
}
