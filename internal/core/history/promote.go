package history

import (
	"context"

	"ota-server/internal/model"
	"ota-server/pkg/constants"
	"ota-server/pkg/errors"
)

// PromoteOverrides 只作用于新记录的覆盖字段, Label 为空时取源部署当前可用发布
type PromoteOverrides struct {
	Label       string
	AppVersion  *string
	Rollout     *int
	IsMandatory *bool
	IsDisabled  *bool
	Description *string
}

// Promote 将源部署的发布包复制为目标部署的新发布
func (s *Store) Promote(ctx context.Context, source, target *model.Deployment, o PromoteOverrides, operator string) (*model.Release, error) {
	if source.ID == target.ID {
		return nil, errors.Validation("源部署与目标部署相同")
	}
	if err := ValidateRollout(o.Rollout); err != nil {
		return nil, err
	}
	if o.AppVersion != nil {
		if err := ValidateAppVersionRange(*o.AppVersion); err != nil {
			return nil, err
		}
	}

	history, err := s.List(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	var src *model.Release
	if o.Label != "" {
		src = findLabel(history, o.Label)
		if src == nil {
			return nil, errors.NotFound("部署 %s 中不存在发布 %s", source.Name, o.Label)
		}
	} else {
		src = latestEnabled(history)
		if src == nil {
			return nil, errors.NotFound("部署 %s 没有可推广的发布", source.Name)
		}
	}
	if !src.IsFullRollout() {
		return nil, errors.Validation("发布 %s 灰度未完成, 不能推广", src.Label)
	}

	sourceName := source.Name
	sourceLabel := src.Label
	release := &model.Release{
		DeploymentID:       target.ID,
		PackageHash:        src.PackageHash,
		PackageSize:        src.PackageSize,
		BlobKey:            src.BlobKey,
		AppVersion:         pick(o.AppVersion, src.AppVersion),
		Rollout:            normalizeRollout(o.Rollout),
		IsMandatory:        pick(o.IsMandatory, src.IsMandatory),
		IsDisabled:         pick(o.IsDisabled, src.IsDisabled),
		Description:        src.Description,
		ReleasedBy:         operator,
		ReleaseMethod:      constants.ReleaseMethodPromote,
		OriginalLabel:      &sourceLabel,
		OriginalDeployment: &sourceName,
	}
	if o.Description != nil {
		release.Description = o.Description
	}

	return s.create(ctx, target, release)
}

func pick[T any](override *T, fallback T) T {
	if override != nil {
		return *override
	}
	return fallback
}

func findLabel(history []model.Release, label string) *model.Release {
	for i := range history {
		if history[i].Label == label {
			return &history[i]
		}
	}
	return nil
}

func latestEnabled(history []model.Release) *model.Release {
	if i := latestEnabledIndex(history); i >= 0 {
		return &history[i]
	}
	return nil
}

func latestEnabledIndex(history []model.Release) int {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsDisabled {
			return i
		}
	}
	return -1
}
