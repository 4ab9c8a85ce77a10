package service

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"ota-server/internal/model"
	"ota-server/internal/repository"
	"ota-server/pkg/errors"
)

// locator 按名称定位应用与部署
type locator struct {
	apps        *repository.AppRepository
	deployments *repository.DeploymentRepository
}

func newLocator(db *gorm.DB) *locator {
	return &locator{
		apps:        repository.NewAppRepository(db),
		deployments: repository.NewDeploymentRepository(db),
	}
}

func (l *locator) app(ctx context.Context, name string) (*model.App, error) {
	app, err := l.apps.FindByName(ctx, name)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("应用 %s 不存在", name)
		}
		return nil, errors.Wrap(errors.CodeDatabaseError, "查询应用失败", err)
	}
	return app, nil
}

func (l *locator) deployment(ctx context.Context, appName, name string) (*model.App, *model.Deployment, error) {
	app, err := l.app(ctx, appName)
	if err != nil {
		return nil, nil, err
	}
	deployment, err := l.deployments.FindByAppAndName(ctx, app.ID, name)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.NotFound("部署 %s/%s 不存在", appName, name)
		}
		return nil, nil, errors.Wrap(errors.CodeDatabaseError, "查询部署失败", err)
	}
	return app, deployment, nil
}

func isDuplicate(err error) bool {
	return stderrors.Is(err, gorm.ErrDuplicatedKey) || errors.IsDuplicateEntry(err)
}
