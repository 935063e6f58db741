package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	imErrors "sudooom.im.typing/pkg/errors"
	"sudooom.im.typing/pkg/proto"
)

// NoticePublisher 通过 NATS 上报输入状态
type NoticePublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewNoticePublisher 创建通知发布器
func NewNoticePublisher(nc *nats.Conn) *NoticePublisher {
	return &NoticePublisher{
		nc:     nc,
		logger: slog.Default(),
	}
}

// Send 发布一条通知
func (p *NoticePublisher) Send(ctx context.Context, notice *proto.TypingNotice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return imErrors.ErrServerError.Wrap(err)
	}

	if err := p.nc.Publish(SubjectTypingNotice, data); err != nil {
		return imErrors.ErrTransport.Wrap(err)
	}

	p.logger.Debug("Published typing notice", "subject", SubjectTypingNotice, "to", notice.To, "op", notice.Op)
	return nil
}
