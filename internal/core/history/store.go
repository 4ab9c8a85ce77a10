// Package history 维护每个部署只追加的发布历史, 并负责发布变更后的缓存失效
package history

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ota-server/internal/model"
	"ota-server/internal/repository"
	"ota-server/pkg/constants"
	"ota-server/pkg/errors"
)

const maxLabelAttempts = 3

// Invalidator 响应缓存失效
type Invalidator interface {
	Invalidate(ctx context.Context, scope string) error
}

// CounterStore 指标计数的清理与迁移
type CounterStore interface {
	Clear(ctx context.Context, deploymentKey string) error
	Rename(ctx context.Context, oldKey, newKey string) error
}

// ReleaseInput 上传发布的参数
type ReleaseInput struct {
	PackageHash string
	PackageSize int64
	BlobKey     string
	AppVersion  string
	Rollout     *int
	IsMandatory bool
	IsDisabled  bool
	Description *string
	ReleasedBy  string
}

// ReleaseUpdate 可修改的非标识字段, nil 表示不修改
type ReleaseUpdate struct {
	AppVersion  *string
	Rollout     *int
	IsMandatory *bool
	IsDisabled  *bool
	Description *string
}

// Store 发布历史存储, 唯一允许发出缓存失效的组件
type Store struct {
	releases    *repository.ReleaseRepository
	deployments *repository.DeploymentRepository
	cache       Invalidator
	counters    CounterStore
	logger      *zap.Logger
}

func NewStore(db *gorm.DB, cache Invalidator, counters CounterStore, logger *zap.Logger) *Store {
	return &Store{
		releases:    repository.NewReleaseRepository(db),
		deployments: repository.NewDeploymentRepository(db),
		cache:       cache,
		counters:    counters,
		logger:      logger,
	}
}

// List 发布历史(旧→新)
func (s *Store) List(ctx context.Context, deploymentID int64) ([]model.Release, error) {
	releases, err := s.releases.ListByDeployment(ctx, deploymentID)
	if err != nil {
		return nil, errors.Unavailable("查询发布历史失败", err)
	}
	return releases, nil
}

// Append 追加一条上传发布
func (s *Store) Append(ctx context.Context, deployment *model.Deployment, in ReleaseInput) (*model.Release, error) {
	if in.PackageHash == "" {
		return nil, errors.Validation("package_hash 不能为空")
	}
	if in.PackageSize < 0 {
		return nil, errors.Validation("package_size 不能为负数")
	}
	if err := ValidateAppVersionRange(in.AppVersion); err != nil {
		return nil, err
	}
	if err := ValidateRollout(in.Rollout); err != nil {
		return nil, err
	}

	release := &model.Release{
		DeploymentID:  deployment.ID,
		PackageHash:   in.PackageHash,
		PackageSize:   in.PackageSize,
		BlobKey:       in.BlobKey,
		AppVersion:    in.AppVersion,
		Rollout:       normalizeRollout(in.Rollout),
		IsMandatory:   in.IsMandatory,
		IsDisabled:    in.IsDisabled,
		Description:   in.Description,
		ReleasedBy:    in.ReleasedBy,
		ReleaseMethod: constants.ReleaseMethodUpload,
	}
	return s.create(ctx, deployment, release)
}

// create 分配标签并写入; 标签冲突在内部最多重试3次, 不向调用方暴露
func (s *Store) create(ctx context.Context, deployment *model.Deployment, release *model.Release) (*model.Release, error) {
	var lastErr error
	for attempt := 1; attempt <= maxLabelAttempts; attempt++ {
		candidate := *release
		err := s.releases.CreateWithNextLabel(ctx, &candidate)
		if err == nil {
			s.logger.Info("发布已创建",
				zap.String("deployment", deployment.Name),
				zap.String("label", candidate.Label),
				zap.String("method", candidate.ReleaseMethod))
			s.invalidate(ctx, deployment.Key)
			return &candidate, nil
		}
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDeploymentNotFound
		}
		if !isConflict(err) {
			return nil, errors.Unavailable("创建发布失败", err)
		}
		lastErr = err
		s.logger.Warn("发布标签冲突, 重试",
			zap.String("deployment", deployment.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, errors.Unavailable("创建发布失败", errors.Wrap(errors.CodeConflict, errors.ErrLabelConflict.Message, lastErr))
}

// Edit 修改发布的非标识字段
func (s *Store) Edit(ctx context.Context, deployment *model.Deployment, label string, upd ReleaseUpdate) (*model.Release, error) {
	release, err := s.findByLabel(ctx, deployment.ID, label)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if upd.AppVersion != nil {
		if err := ValidateAppVersionRange(*upd.AppVersion); err != nil {
			return nil, err
		}
		fields["app_version"] = *upd.AppVersion
	}
	if upd.Rollout != nil {
		if err := ValidateRollout(upd.Rollout); err != nil {
			return nil, err
		}
		fields["rollout"] = normalizeRollout(upd.Rollout)
	}
	if upd.IsMandatory != nil {
		fields["is_mandatory"] = *upd.IsMandatory
	}
	if upd.IsDisabled != nil {
		fields["is_disabled"] = *upd.IsDisabled
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if len(fields) == 0 {
		return nil, errors.Validation("没有需要修改的字段")
	}

	if err := s.releases.UpdateFields(ctx, release.ID, fields); err != nil {
		return nil, errors.Unavailable("修改发布失败", err)
	}
	s.invalidate(ctx, deployment.Key)

	return s.findByLabel(ctx, deployment.ID, label)
}

// Disable 禁用发布, 已禁用的发布不会再下发给任何客户端
func (s *Store) Disable(ctx context.Context, deployment *model.Deployment, label string) (*model.Release, error) {
	disabled := true
	return s.Edit(ctx, deployment, label, ReleaseUpdate{IsDisabled: &disabled})
}

// ClearHistory 删除部署的全部发布及指标, 不可恢复; 标签计数器不回退
func (s *Store) ClearHistory(ctx context.Context, deployment *model.Deployment) error {
	removed, err := s.releases.DeleteByDeployment(ctx, deployment.ID)
	if err != nil {
		return errors.Unavailable("清空发布历史失败", err)
	}
	s.invalidate(ctx, deployment.Key)

	if err := s.counters.Clear(ctx, deployment.Key); err != nil {
		return errors.Unavailable("清空指标失败", err)
	}

	s.logger.Info("发布历史已清空", zap.String("deployment", deployment.Name), zap.Int64("removed", removed))
	return nil
}

// RotateKey 更换部署Key, 旧Key的缓存作用域失效, 计数迁移到新Key
func (s *Store) RotateKey(ctx context.Context, deployment *model.Deployment) (*model.Deployment, error) {
	oldKey := deployment.Key
	newKey := NewDeploymentKey()

	if err := s.deployments.UpdateKey(ctx, deployment.ID, oldKey, newKey); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDeploymentNotFound
		}
		return nil, errors.Unavailable("更换部署Key失败", err)
	}
	s.invalidate(ctx, oldKey)

	if err := s.counters.Rename(ctx, oldKey, newKey); err != nil {
		s.logger.Error("迁移指标计数失败", zap.String("deployment", deployment.Name), zap.Error(err))
	}

	rotated := *deployment
	rotated.Key = newKey
	return &rotated, nil
}

func (s *Store) findByLabel(ctx context.Context, deploymentID int64, label string) (*model.Release, error) {
	release, err := s.releases.FindByLabel(ctx, deploymentID, label)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("发布 %s 不存在", label)
		}
		return nil, errors.Unavailable("查询发布失败", err)
	}
	return release, nil
}

// invalidate 失效失败时重试一次, 仍失败则依赖缓存TTL兜底
func (s *Store) invalidate(ctx context.Context, deploymentKey string) {
	if s.cache == nil {
		return
	}
	err := s.cache.Invalidate(ctx, deploymentKey)
	if err != nil {
		err = s.cache.Invalidate(ctx, deploymentKey)
	}
	if err != nil {
		s.logger.Error("响应缓存失效失败", zap.Error(err))
	}
}

func normalizeRollout(rollout *int) *int {
	if rollout == nil || *rollout >= constants.RolloutFull {
		return nil
	}
	v := *rollout
	return &v
}

func isConflict(err error) bool {
	return stderrors.Is(err, gorm.ErrDuplicatedKey) || errors.IsDuplicateEntry(err)
}
