package proto

// Op 输入状态操作
type Op string

const (
	OpStart Op = "start"
	OpStop  Op = "stop"
)

// Valid 是否为已知操作
func (o Op) Valid() bool {
	return o == OpStart || o == OpStop
}

// ============== 上行通知 (本地 -> 服务端) ==============

// TypingNotice 本地用户的输入状态通知
// To 为逗号拼接的有序用户 ID 列表
type TypingNotice struct {
	To        string `json:"to"`
	Op        Op     `json:"op"`
	From      int64  `json:"from,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ============== 下行事件 (服务端 -> 本地) ==============

// TypingUserRef 事件中的用户引用
type TypingUserRef struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// TypingEvent 远端用户的输入状态事件
type TypingEvent struct {
	Op         Op              `json:"op"`
	Sender     TypingUserRef   `json:"sender"`
	Recipients []TypingUserRef `json:"recipients"`
}

// ============== 展示推送 (本地 -> UI) ==============

// TypingUser 正在输入的用户
type TypingUser struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// TypingUpdate 当前视图下正在输入的用户列表
type TypingUpdate struct {
	Narrow string       `json:"narrow"`
	Users  []TypingUser `json:"users"`
}
