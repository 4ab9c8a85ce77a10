package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ota-server/internal/adapter/notification"
	"ota-server/internal/adapter/storage"
	"ota-server/internal/core/history"
	"ota-server/internal/dto"
	"ota-server/internal/model"
	"ota-server/pkg/constants"
)

const notifyTimeout = 10 * time.Second

// UploadSigner 生成上传地址
type UploadSigner interface {
	UploadURL(blobKey string) storage.UploadURL
}

type ReleaseService interface {
	UploadURL(ctx context.Context, app, deployment string) (*dto.UploadURLResponse, error)
	Create(ctx context.Context, app, deployment string, req *dto.CreateReleaseRequest, operator string) (*dto.ReleaseResponse, error)
	Update(ctx context.Context, app, deployment string, req *dto.UpdateReleaseRequest, operator string) (*dto.ReleaseResponse, error)
	Disable(ctx context.Context, app, deployment, label, operator string) (*dto.ReleaseResponse, error)
	Promote(ctx context.Context, app, source, target string, req *dto.PromoteRequest, operator string) (*dto.ReleaseResponse, error)
	Rollback(ctx context.Context, app, deployment string, req *dto.RollbackRequest, operator string) (*dto.ReleaseResponse, error)
	History(ctx context.Context, app, deployment string) ([]*dto.ReleaseResponse, error)
	Clear(ctx context.Context, app, deployment, operator string) error
}

type releaseService struct {
	locator  *locator
	store    *history.Store
	signer   UploadSigner
	notifier notification.Notifier
	logger   *zap.Logger
}

func NewReleaseService(db *gorm.DB, store *history.Store, signer UploadSigner, notifier notification.Notifier, logger *zap.Logger) ReleaseService {
	return &releaseService{
		locator:  newLocator(db),
		store:    store,
		signer:   signer,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *releaseService) UploadURL(ctx context.Context, appName, name string) (*dto.UploadURLResponse, error) {
	app, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}
	up := s.signer.UploadURL(storage.NewBlobKey(app.Name, deployment.Name))
	return &dto.UploadURLResponse{
		URL:         up.URL,
		BlobKey:     up.BlobKey,
		ContentType: up.ContentType,
		ExpiresAt:   up.ExpiresAt,
	}, nil
}

func (s *releaseService) Create(ctx context.Context, appName, name string, req *dto.CreateReleaseRequest, operator string) (*dto.ReleaseResponse, error) {
	app, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}

	release, err := s.store.Append(ctx, deployment, history.ReleaseInput{
		PackageHash: req.PackageHash,
		PackageSize: req.PackageSize,
		BlobKey:     req.BlobKey,
		AppVersion:  req.AppVersion,
		Rollout:     req.Rollout,
		IsMandatory: req.IsMandatory,
		IsDisabled:  req.IsDisabled,
		Description: req.Description,
		ReleasedBy:  operator,
	})
	if err != nil {
		return nil, err
	}

	s.notify(notification.NotifyReleaseUploaded, app, deployment, release.Label, operator,
		fmt.Sprintf("目标版本 %s, 灰度 %d%%", release.AppVersion, rolloutOf(release)))
	return toReleaseResponse(release), nil
}

func (s *releaseService) Update(ctx context.Context, appName, name string, req *dto.UpdateReleaseRequest, operator string) (*dto.ReleaseResponse, error) {
	app, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}

	release, err := s.store.Edit(ctx, deployment, req.Label, history.ReleaseUpdate{
		AppVersion:  req.AppVersion,
		Rollout:     req.Rollout,
		IsMandatory: req.IsMandatory,
		IsDisabled:  req.IsDisabled,
		Description: req.Description,
	})
	if err != nil {
		return nil, err
	}

	s.notify(notification.NotifyReleaseEdited, app, deployment, release.Label, operator,
		fmt.Sprintf("灰度 %d%%, 强制 %t, 禁用 %t", rolloutOf(release), release.IsMandatory, release.IsDisabled))
	return toReleaseResponse(release), nil
}

func (s *releaseService) Disable(ctx context.Context, appName, name, label, operator string) (*dto.ReleaseResponse, error) {
	app, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}

	release, err := s.store.Disable(ctx, deployment, label)
	if err != nil {
		return nil, err
	}

	s.notify(notification.NotifyReleaseDisabled, app, deployment, release.Label, operator, "发布已禁用")
	return toReleaseResponse(release), nil
}

func (s *releaseService) Promote(ctx context.Context, appName, sourceName, targetName string, req *dto.PromoteRequest, operator string) (*dto.ReleaseResponse, error) {
	app, source, err := s.locator.deployment(ctx, appName, sourceName)
	if err != nil {
		return nil, err
	}
	_, target, err := s.locator.deployment(ctx, appName, targetName)
	if err != nil {
		return nil, err
	}

	release, err := s.store.Promote(ctx, source, target, history.PromoteOverrides{
		Label:       req.Label,
		AppVersion:  req.AppVersion,
		Rollout:     req.Rollout,
		IsMandatory: req.IsMandatory,
		IsDisabled:  req.IsDisabled,
		Description: req.Description,
	}, operator)
	if err != nil {
		return nil, err
	}

	s.notify(notification.NotifyReleasePromoted, app, target, release.Label, operator,
		fmt.Sprintf("由 %s %s 推广", source.Name, lo.FromPtr(release.OriginalLabel)))
	return toReleaseResponse(release), nil
}

func (s *releaseService) Rollback(ctx context.Context, appName, name string, req *dto.RollbackRequest, operator string) (*dto.ReleaseResponse, error) {
	app, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}

	release, err := s.store.Rollback(ctx, deployment, req.TargetLabel, operator)
	if err != nil {
		return nil, err
	}

	s.notify(notification.NotifyReleaseRolledBack, app, deployment, release.Label, operator,
		fmt.Sprintf("回滚到 %s", lo.FromPtr(release.OriginalLabel)))
	return toReleaseResponse(release), nil
}

func (s *releaseService) History(ctx context.Context, appName, name string) ([]*dto.ReleaseResponse, error) {
	_, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}

	releases, err := s.store.List(ctx, deployment.ID)
	if err != nil {
		return nil, err
	}
	return lo.Map(releases, func(r model.Release, _ int) *dto.ReleaseResponse {
		return toReleaseResponse(&r)
	}), nil
}

func (s *releaseService) Clear(ctx context.Context, appName, name, operator string) error {
	app, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return err
	}

	if err := s.store.ClearHistory(ctx, deployment); err != nil {
		return err
	}

	s.notify(notification.NotifyHistoryCleared, app, deployment, "", operator, "发布历史及指标已清空")
	return nil
}

func (s *releaseService) notify(t notification.NotificationType, app *model.App, deployment *model.Deployment, label, operator, message string) {
	notify(s.notifier, s.logger, notification.ReleaseEvent{
		Type:       t,
		App:        app.Name,
		Deployment: deployment.Name,
		Label:      label,
		Operator:   operator,
		Message:    message,
	})
}

// notify 异步发送, 通知失败不影响发布结果
func notify(notifier notification.Notifier, logger *zap.Logger, event notification.ReleaseEvent) {
	if notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := notifier.SendReleaseNotification(ctx, event); err != nil {
			logger.Warn("发送发布通知失败", zap.String("type", string(event.Type)), zap.Error(err))
		}
	}()
}

func rolloutOf(r *model.Release) int {
	if r.IsFullRollout() {
		return constants.RolloutFull
	}
	return *r.Rollout
}

func toReleaseResponse(r *model.Release) *dto.ReleaseResponse {
	return &dto.ReleaseResponse{
		Label:              r.Label,
		PackageHash:        r.PackageHash,
		PackageSize:        r.PackageSize,
		BlobKey:            r.BlobKey,
		AppVersion:         r.AppVersion,
		Rollout:            rolloutOf(r),
		IsMandatory:        r.IsMandatory,
		IsDisabled:         r.IsDisabled,
		Description:        lo.FromPtr(r.Description),
		ReleasedBy:         r.ReleasedBy,
		ReleaseMethod:      r.ReleaseMethod,
		OriginalLabel:      lo.FromPtr(r.OriginalLabel),
		OriginalDeployment: lo.FromPtr(r.OriginalDeployment),
		UploadTime:         r.CreatedAt,
	}
}
