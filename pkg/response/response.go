package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	imErrors "sudooom.im.typing/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    imErrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// ErrorFromAppError 从 AppError 生成错误响应
func ErrorFromAppError(c *gin.Context, err error) {
	c.JSON(statusFor(err), Response{
		Code:    imErrors.GetCode(err),
		Message: imErrors.GetMessage(err),
		Data:    nil,
	})
}

// InvalidParams 参数错误
func InvalidParams(c *gin.Context, err error) {
	ErrorFromAppError(c, imErrors.ErrInvalidParams.Wrap(err))
}

func statusFor(err error) int {
	switch imErrors.GetCode(err) {
	case imErrors.CodeInvalidParams:
		return http.StatusBadRequest
	case imErrors.CodeUserNotFound:
		return http.StatusNotFound
	case imErrors.CodeNotRunning:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
