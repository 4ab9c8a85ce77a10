package service

import (
	"context"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"ota-server/internal/core/history"
	"ota-server/internal/dto"
	"ota-server/internal/model"
	"ota-server/internal/repository"
	"ota-server/pkg/constants"
	"ota-server/pkg/errors"
)

type AppService interface {
	Create(ctx context.Context, req *dto.CreateAppRequest) (*dto.AppResponse, error)
	List(ctx context.Context) ([]*dto.AppResponse, error)
}

type appService struct {
	repo    *repository.AppRepository
	locator *locator
}

func NewAppService(db *gorm.DB) AppService {
	return &appService{
		repo:    repository.NewAppRepository(db),
		locator: newLocator(db),
	}
}

func (s *appService) Create(ctx context.Context, req *dto.CreateAppRequest) (*dto.AppResponse, error) {
	if existing, _ := s.locator.app(ctx, req.Name); existing != nil {
		return nil, errors.New(errors.CodeConflict, "应用 "+req.Name+" 已存在")
	}

	app := &model.App{Name: req.Name}
	deployments := []model.Deployment{
		{Name: constants.DeploymentStaging, Key: history.NewDeploymentKey()},
		{Name: constants.DeploymentProduction, Key: history.NewDeploymentKey()},
	}
	if err := s.repo.CreateWithDeployments(ctx, app, deployments); err != nil {
		if isDuplicate(err) {
			return nil, errors.New(errors.CodeConflict, "应用 "+req.Name+" 已存在")
		}
		return nil, errors.Wrap(errors.CodeDatabaseError, "创建应用失败", err)
	}

	return toAppResponse(app), nil
}

func (s *appService) List(ctx context.Context) ([]*dto.AppResponse, error) {
	apps, err := s.repo.List(ctx, repository.WithPreload("Deployments"))
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "查询应用失败", err)
	}
	return lo.Map(apps, func(app model.App, _ int) *dto.AppResponse {
		return toAppResponse(&app)
	}), nil
}

func toAppResponse(app *model.App) *dto.AppResponse {
	return &dto.AppResponse{
		ID:   app.ID,
		Name: app.Name,
		Deployments: lo.Map(app.Deployments, func(d model.Deployment, _ int) *dto.DeploymentResponse {
			return toDeploymentResponse(&d)
		}),
		CreatedAt: app.CreatedAt,
	}
}
