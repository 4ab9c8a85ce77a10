package dto

import (
	"github.com/Masterminds/semver/v3"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 在gin的校验器上注册自定义tag
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("semver_range", validateSemverRange)
}

// semver_range: 合法的semver版本或范围, 如 "1.2.3" "^1.2.0" "1.x"
func validateSemverRange(fl validator.FieldLevel) bool {
	_, err := semver.NewConstraint(fl.Field().String())
	return err == nil
}
