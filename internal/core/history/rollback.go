package history

import (
	"context"

	"ota-server/internal/model"
	"ota-server/pkg/constants"
	"ota-server/pkg/errors"
)

// Rollback 以较早发布的包创建一条新发布
// targetLabel 为空时, 从当前发布往前找第一个未禁用且包哈希不同的发布
func (s *Store) Rollback(ctx context.Context, deployment *model.Deployment, targetLabel, operator string) (*model.Release, error) {
	history, err := s.List(ctx, deployment.ID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, errors.NotFound("部署 %s 没有发布记录", deployment.Name)
	}

	target, err := rollbackTarget(history, targetLabel)
	if err != nil {
		return nil, err
	}

	label := target.Label
	release := &model.Release{
		DeploymentID:  deployment.ID,
		PackageHash:   target.PackageHash,
		PackageSize:   target.PackageSize,
		BlobKey:       target.BlobKey,
		AppVersion:    target.AppVersion,
		IsMandatory:   target.IsMandatory,
		Description:   target.Description,
		ReleasedBy:    operator,
		ReleaseMethod: constants.ReleaseMethodRollback,
		OriginalLabel: &label,
	}
	return s.create(ctx, deployment, release)
}

// rollbackTarget 当前发布指最后一个未禁用的发布, 与客户端实际收到的一致
func rollbackTarget(history []model.Release, targetLabel string) (*model.Release, error) {
	idx := latestEnabledIndex(history)
	if idx < 0 {
		return nil, errors.NotFound("没有可用的当前发布")
	}
	current := history[idx]

	if targetLabel != "" {
		target := findLabel(history, targetLabel)
		if target == nil {
			return nil, errors.NotFound("发布 %s 不存在", targetLabel)
		}
		if target.PackageHash == current.PackageHash {
			return nil, errors.Validation("发布 %s 与当前发布 %s 的包相同, 无需回滚", targetLabel, current.Label)
		}
		return target, nil
	}

	for i := idx - 1; i >= 0; i-- {
		if history[i].IsDisabled {
			continue
		}
		if history[i].PackageHash != current.PackageHash {
			return &history[i], nil
		}
	}
	return nil, errors.NotFound("没有可回滚的历史发布")
}
