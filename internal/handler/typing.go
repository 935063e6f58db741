package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"sudooom.im.typing/internal/people"
	"sudooom.im.typing/internal/typing"
	imErrors "sudooom.im.typing/pkg/errors"
	"sudooom.im.typing/pkg/proto"
	"sudooom.im.typing/pkg/response"
)

// Coordinator 处理器依赖的协调器操作
type Coordinator interface {
	ComposeInput(ctx context.Context, recipientIDs []int64, content string) error
	SetComposeRecipient(ctx context.Context, recipientIDs []int64) error
	ComposeClosed(ctx context.Context) error
	Outstanding(ctx context.Context) (typing.RecipientKey, error)
	HandleRemoteEvent(ctx context.Context, event *proto.TypingEvent) error
	SetNarrow(ctx context.Context, n typing.Narrow) error
	ActiveTypists(ctx context.Context, n typing.Narrow) ([]people.Person, error)
	CurrentTypists(ctx context.Context) (*proto.TypingUpdate, error)
}

// TypingHandler 本地 UI 接口
type TypingHandler struct {
	coordinator Coordinator
	directory   *people.Directory
}

// NewTypingHandler 创建处理器
func NewTypingHandler(coordinator Coordinator, directory *people.Directory) *TypingHandler {
	return &TypingHandler{coordinator: coordinator, directory: directory}
}

// RecipientRequest 收件人，用户 ID 与邮箱二选一
type RecipientRequest struct {
	To     []int64 `json:"to"`
	Emails string  `json:"emails"`
}

// ComposeInputRequest 输入框内容变化
type ComposeInputRequest struct {
	RecipientRequest
	Content string `json:"content"`
}

// NarrowRequest 视图切换
type NarrowRequest struct {
	Operator string `json:"operator"`
	Operand  string `json:"operand"`
}

func (h *TypingHandler) recipientIDs(req RecipientRequest) ([]int64, error) {
	if req.Emails != "" {
		return h.directory.EmailsToUserIDs(req.Emails)
	}
	return req.To, nil
}

// ComposeInput 输入框内容变化
// POST /api/v1/compose/input
func (h *TypingHandler) ComposeInput(c *gin.Context) {
	var req ComposeInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	ids, err := h.recipientIDs(req.RecipientRequest)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	if err := h.coordinator.ComposeInput(c.Request.Context(), ids, req.Content); err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	h.outstanding(c)
}

// SetComposeRecipient 收件人变化
// PUT /api/v1/compose/recipient
func (h *TypingHandler) SetComposeRecipient(c *gin.Context) {
	var req RecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	ids, err := h.recipientIDs(req)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	if err := h.coordinator.SetComposeRecipient(c.Request.Context(), ids); err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	h.outstanding(c)
}

// ComposeClose 输入框关闭或消息已发送
// POST /api/v1/compose/close
func (h *TypingHandler) ComposeClose(c *gin.Context) {
	if err := h.coordinator.ComposeClosed(c.Request.Context()); err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, nil)
}

// Outstanding 当前已发出 start 的会话
// GET /api/v1/compose/outstanding
func (h *TypingHandler) Outstanding(c *gin.Context) {
	h.outstanding(c)
}

func (h *TypingHandler) outstanding(c *gin.Context) {
	key, err := h.coordinator.Outstanding(c.Request.Context())
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, gin.H{"outstanding": key.String()})
}

// SetNarrow 切换视图
// PUT /api/v1/narrow
func (h *TypingHandler) SetNarrow(c *gin.Context) {
	var req NarrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	n, err := typing.ParseNarrow(req.Operator, req.Operand, h.directory)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	if err := h.coordinator.SetNarrow(c.Request.Context(), n); err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	update, err := h.coordinator.CurrentTypists(c.Request.Context())
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, update)
}

// GetTyping 正在输入的用户
// GET /api/v1/typing?with=bob@example.com,carol@example.com
// 不带 with 时返回当前视图
func (h *TypingHandler) GetTyping(c *gin.Context) {
	with := c.Query("with")
	if with == "" {
		update, err := h.coordinator.CurrentTypists(c.Request.Context())
		if err != nil {
			response.ErrorFromAppError(c, err)
			return
		}
		response.Success(c, update)
		return
	}

	ids, err := h.directory.EmailsToUserIDs(with)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	n := typing.PrivateWith(ids...)
	persons, err := h.coordinator.ActiveTypists(c.Request.Context(), n)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	users := make([]proto.TypingUser, 0, len(persons))
	for _, p := range persons {
		users = append(users, proto.TypingUser{UserID: p.UserID, Email: p.Email, FullName: p.FullName})
	}
	response.Success(c, &proto.TypingUpdate{Narrow: n.String(), Users: users})
}

// PostEvent 注入远端输入状态事件
// POST /api/v1/events/typing
func (h *TypingHandler) PostEvent(c *gin.Context) {
	var event proto.TypingEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.InvalidParams(c, err)
		return
	}
	if !event.Op.Valid() {
		response.ErrorFromAppError(c, imErrors.ErrInvalidParams.Wrapf("unknown op %q", event.Op))
		return
	}

	if err := h.coordinator.HandleRemoteEvent(c.Request.Context(), &event); err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, nil)
}
