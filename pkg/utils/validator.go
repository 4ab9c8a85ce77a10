package utils

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// FormatValidationError 格式化请求绑定错误, 供客户端与管理端共用
func FormatValidationError(err error) string {
	if err == nil {
		return ""
	}

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		return strings.Join(lo.Map(validationErrors, func(e validator.FieldError, _ int) string {
			return formatFieldError(e)
		}), "; ")
	}

	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) {
		return fmt.Sprintf("field '%s' should be %s", typeErr.Field, typeErr.Type.String())
	}

	var syntaxErr *json.SyntaxError
	if stderrors.As(err, &syntaxErr) {
		return "invalid JSON format"
	}

	return err.Error()
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "max":
		if isNumber(e.Kind()) {
			return fmt.Sprintf("field '%s' must be at most %s", field, e.Param())
		}
		return fmt.Sprintf("field '%s' must be at most %s characters", field, e.Param())
	case "min":
		if isNumber(e.Kind()) {
			return fmt.Sprintf("field '%s' must be at least %s", field, e.Param())
		}
		return fmt.Sprintf("field '%s' must be at least %s characters", field, e.Param())
	case "gte":
		return fmt.Sprintf("field '%s' must be greater than or equal to %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "semver_range":
		return fmt.Sprintf("field '%s' must be a semver range, got %q", field, e.Value())
	default:
		return fmt.Sprintf("field '%s' validation failed on '%s' tag", field, e.Tag())
	}
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
