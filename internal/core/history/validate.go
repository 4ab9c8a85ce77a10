package history

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"ota-server/pkg/errors"
)

// ValidateAppVersionRange 校验目标二进制版本范围, 例如 "1.2.3" "^1.2.0" "1.x" ">=1.0.0 <2.0.0"
func ValidateAppVersionRange(appVersion string) error {
	if strings.TrimSpace(appVersion) == "" {
		return errors.Validation("app_version 不能为空")
	}
	if _, err := semver.NewConstraint(appVersion); err != nil {
		return errors.Validation("app_version %q 不是合法的semver范围", appVersion)
	}
	return nil
}

// ValidateRollout 灰度比例必须在 0-100 之间, nil 表示全量
func ValidateRollout(rollout *int) error {
	if rollout == nil {
		return nil
	}
	if *rollout < 0 || *rollout > 100 {
		return errors.Validation("rollout %d 超出范围 0-100", *rollout)
	}
	return nil
}

// NewDeploymentKey 生成部署Key
func NewDeploymentKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
