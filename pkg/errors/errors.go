package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// 错误码
const (
	CodeSuccess         = 200
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeInternalError   = 500
	CodeDatabaseError   = 501
	CodeUnavailable     = 503 // 后端存储不可用
	CodeValidationError = 422
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NotFound 资源不存在
func NotFound(format string, args ...interface{}) *AppError {
	return New(CodeNotFound, fmt.Sprintf(format, args...))
}

// Validation 参数校验失败
func Validation(format string, args ...interface{}) *AppError {
	return New(CodeValidationError, fmt.Sprintf(format, args...))
}

// Unavailable 后端存储不可用
func Unavailable(message string, err error) *AppError {
	return Wrap(CodeUnavailable, message, err)
}

// Code 返回错误链上第一个AppError的错误码, 非AppError返回 CodeInternalError
func Code(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// Message 返回错误链上第一个AppError的消息
func Message(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// IsCode 判断错误码
func IsCode(err error, code int) bool {
	return err != nil && Code(err) == code
}

// 预定义错误
var (
	ErrBadRequest    = New(CodeBadRequest, "请求参数错误")
	ErrUnauthorized  = New(CodeUnauthorized, "未授权")
	ErrNotFound      = New(CodeNotFound, "资源不存在")
	ErrInternalError = New(CodeInternalError, "内部服务器错误")
	ErrInvalidToken  = New(CodeUnauthorized, "无效的Token")
	ErrTokenExpired  = New(CodeUnauthorized, "Token已过期")

	// 具体业务错误
	ErrAppNotFound        = New(CodeNotFound, "应用不存在")
	ErrDeploymentNotFound = New(CodeNotFound, "部署不存在")
	ErrReleaseNotFound    = New(CodeNotFound, "发布记录不存在")
	ErrLabelConflict      = New(CodeConflict, "发布标签冲突")
)

// IsDuplicateEntry 唯一索引冲突(未开启 TranslateError 的驱动)
func IsDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
