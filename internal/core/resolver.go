package core

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"ota-server/internal/model"
	"ota-server/internal/repository"
	"ota-server/pkg/errors"
)

// keyResolver 按部署Key查找部署
type keyResolver struct {
	repo *repository.DeploymentRepository
}

func (r *keyResolver) ResolveByKey(ctx context.Context, key string) (*model.Deployment, error) {
	deployment, err := r.repo.FindByKey(ctx, key)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDeploymentNotFound
		}
		return nil, errors.Unavailable("查询部署失败", err)
	}
	return deployment, nil
}
