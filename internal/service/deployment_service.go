package service

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ota-server/internal/adapter/notification"
	"ota-server/internal/core/history"
	"ota-server/internal/dto"
	"ota-server/internal/model"
	"ota-server/internal/repository"
	"ota-server/pkg/errors"
)

type DeploymentService interface {
	List(ctx context.Context, app string) ([]*dto.DeploymentResponse, error)
	Create(ctx context.Context, app string, req *dto.CreateDeploymentRequest) (*dto.DeploymentResponse, error)
	RotateKey(ctx context.Context, app, deployment, operator string) (*dto.DeploymentResponse, error)
}

type deploymentService struct {
	repo     *repository.DeploymentRepository
	locator  *locator
	store    *history.Store
	notifier notification.Notifier
	logger   *zap.Logger
}

func NewDeploymentService(db *gorm.DB, store *history.Store, notifier notification.Notifier, logger *zap.Logger) DeploymentService {
	return &deploymentService{
		repo:     repository.NewDeploymentRepository(db),
		locator:  newLocator(db),
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *deploymentService) List(ctx context.Context, appName string) ([]*dto.DeploymentResponse, error) {
	app, err := s.locator.app(ctx, appName)
	if err != nil {
		return nil, err
	}
	deployments, err := s.repo.ListByApp(ctx, app.ID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "查询部署失败", err)
	}
	return lo.Map(deployments, func(d model.Deployment, _ int) *dto.DeploymentResponse {
		return toDeploymentResponse(&d)
	}), nil
}

func (s *deploymentService) Create(ctx context.Context, appName string, req *dto.CreateDeploymentRequest) (*dto.DeploymentResponse, error) {
	app, err := s.locator.app(ctx, appName)
	if err != nil {
		return nil, err
	}

	deployment := &model.Deployment{
		AppID: app.ID,
		Name:  req.Name,
		Key:   history.NewDeploymentKey(),
	}
	if err := s.repo.Create(ctx, deployment); err != nil {
		if isDuplicate(err) {
			return nil, errors.New(errors.CodeConflict, "部署 "+req.Name+" 已存在")
		}
		return nil, errors.Wrap(errors.CodeDatabaseError, "创建部署失败", err)
	}
	return toDeploymentResponse(deployment), nil
}

func (s *deploymentService) RotateKey(ctx context.Context, appName, name, operator string) (*dto.DeploymentResponse, error) {
	app, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}

	rotated, err := s.store.RotateKey(ctx, deployment)
	if err != nil {
		return nil, err
	}

	notify(s.notifier, s.logger, notification.ReleaseEvent{
		Type:       notification.NotifyKeyRotated,
		App:        app.Name,
		Deployment: deployment.Name,
		Operator:   operator,
		Message:    "部署Key已更换, 旧Key立即失效",
	})
	return toDeploymentResponse(rotated), nil
}

func toDeploymentResponse(d *model.Deployment) *dto.DeploymentResponse {
	return &dto.DeploymentResponse{
		ID:        d.ID,
		Name:      d.Name,
		Key:       d.Key,
		CreatedAt: d.CreatedAt,
	}
}
