package nats

import "fmt"

// NATS Subject 常量定义
const (
	// SubjectTypingNotice 本地 -> 服务端 输入状态通知
	SubjectTypingNotice = "im.typing.notice"

	// SubjectTypingUserPrefix 服务端 -> 本地 输入状态事件前缀
	// 完整格式: im.typing.user.{user_id}
	SubjectTypingUserPrefix = "im.typing.user."
)

// BuildTypingUserSubject 构建用户输入状态事件 Subject
func BuildTypingUserSubject(userID int64) string {
	return fmt.Sprintf("%s%d", SubjectTypingUserPrefix, userID)
}
