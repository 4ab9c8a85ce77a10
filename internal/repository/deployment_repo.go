package repository

import (
	"context"

	"gorm.io/gorm"

	"ota-server/internal/model"
)

type DeploymentRepository struct {
	db *gorm.DB
}

func NewDeploymentRepository(db *gorm.DB) *DeploymentRepository {
	return &DeploymentRepository{db: db}
}

// Create 创建部署
func (r *DeploymentRepository) Create(ctx context.Context, deployment *model.Deployment) error {
	return r.db.WithContext(ctx).Create(deployment).Error
}

// FindByID 根据ID查询
func (r *DeploymentRepository) FindByID(ctx context.Context, id int64) (*model.Deployment, error) {
	var deployment model.Deployment
	if err := r.db.WithContext(ctx).First(&deployment, id).Error; err != nil {
		return nil, err
	}
	return &deployment, nil
}

// FindByKey 根据部署Key查询
func (r *DeploymentRepository) FindByKey(ctx context.Context, key string) (*model.Deployment, error) {
	var deployment model.Deployment
	if err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&deployment).Error; err != nil {
		return nil, err
	}
	return &deployment, nil
}

// FindByAppAndName 查询应用下的指定部署
func (r *DeploymentRepository) FindByAppAndName(ctx context.Context, appID int64, name string) (*model.Deployment, error) {
	var deployment model.Deployment
	if err := r.db.WithContext(ctx).Where("app_id = ? AND name = ?", appID, name).First(&deployment).Error; err != nil {
		return nil, err
	}
	return &deployment, nil
}

// ListByApp 查询应用下全部部署
func (r *DeploymentRepository) ListByApp(ctx context.Context, appID int64) ([]model.Deployment, error) {
	var deployments []model.Deployment
	err := r.db.WithContext(ctx).Where("app_id = ?", appID).Order("id ASC").Find(&deployments).Error
	return deployments, err
}

// ListAll 查询全部部署
func (r *DeploymentRepository) ListAll(ctx context.Context) ([]model.Deployment, error) {
	var deployments []model.Deployment
	err := r.db.WithContext(ctx).Order("id ASC").Find(&deployments).Error
	return deployments, err
}

// UpdateKey 更换部署Key, 以旧Key为条件防止并发覆盖
func (r *DeploymentRepository) UpdateKey(ctx context.Context, id int64, oldKey, newKey string) error {
	result := r.db.WithContext(ctx).Model(&model.Deployment{}).
		Where("id = ? AND `key` = ?", id, oldKey).
		Update("key", newKey)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
