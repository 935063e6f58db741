package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Wrapf 以格式化消息包装
func (e *AppError) Wrapf(format string, args ...any) *AppError {
	return e.Wrap(fmt.Errorf(format, args...))
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 参数与用户 11000-11999
	CodeUserNotFound  = 11001
	CodeInvalidParams = 11002

	// 输入状态 13000-13999
	CodeNotRunning    = 13001
	CodeTransport     = 13002
	CodeInvalidConfig = 13003

	// 系统错误 50000-50999
	CodeServerError = 50001
)

// ============== 预定义错误 ==============

var (
	ErrUserNotFound  = NewError(CodeUserNotFound, "用户不存在")
	ErrInvalidParams = NewError(CodeInvalidParams, "参数校验失败")
)

var (
	ErrNotRunning    = NewError(CodeNotRunning, "输入状态协调器未运行")
	ErrTransport     = NewError(CodeTransport, "输入状态通知发送失败")
	ErrInvalidConfig = NewError(CodeInvalidConfig, "配置无效")
)

var (
	ErrServerError = NewError(CodeServerError, "服务器内部错误")
)
