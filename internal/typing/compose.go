package typing

import (
	"slices"
	"strings"
)

// ComposeState 输入框状态提供者
type ComposeState interface {
	Recipient() RecipientKey
	HasMessageContent() bool
}

// ComposeBox 输入框状态
// 收件人包含本地用户，与服务端会话标识一致
type ComposeBox struct {
	self      int64
	recipient RecipientKey
	content   string
}

// NewComposeBox 创建输入框
func NewComposeBox(self int64) *ComposeBox {
	return &ComposeBox{self: self}
}

// SetRecipient 设置收件人，空列表表示未选择
func (b *ComposeBox) SetRecipient(userIDs []int64) {
	if len(userIDs) == 0 {
		b.recipient = ""
		return
	}
	b.recipient = NewRecipientKey(append(slices.Clone(userIDs), b.self)...)
}

// SetContent 设置输入内容
func (b *ComposeBox) SetContent(content string) {
	b.content = content
}

// Clear 关闭或发送后清空
func (b *ComposeBox) Clear() {
	b.recipient = ""
	b.content = ""
}

func (b *ComposeBox) Recipient() RecipientKey {
	return b.recipient
}

func (b *ComposeBox) HasMessageContent() bool {
	return strings.TrimSpace(b.content) != ""
}
