package repository

import (
	"context"

	"gorm.io/gorm"

	"ota-server/internal/model"
)

type AppRepository struct {
	db *gorm.DB
}

func NewAppRepository(db *gorm.DB) *AppRepository {
	return &AppRepository{db: db}
}

// CreateWithDeployments 在同一事务中创建应用及其部署
func (r *AppRepository) CreateWithDeployments(ctx context.Context, app *model.App, deployments []model.Deployment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return err
		}
		for i := range deployments {
			deployments[i].AppID = app.ID
		}
		if len(deployments) > 0 {
			if err := tx.Create(&deployments).Error; err != nil {
				return err
			}
		}
		app.Deployments = deployments
		return nil
	})
}

// FindByName 根据名称查询应用
func (r *AppRepository) FindByName(ctx context.Context, name string, opts ...QueryOption) (*model.App, error) {
	var app model.App
	query := r.db.WithContext(ctx)
	for _, opt := range opts {
		query = opt(query)
	}
	if err := query.Where("name = ?", name).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// List 查询全部应用
func (r *AppRepository) List(ctx context.Context, opts ...QueryOption) ([]model.App, error) {
	var apps []model.App
	query := r.db.WithContext(ctx)
	for _, opt := range opts {
		query = opt(query)
	}
	err := query.Order("name ASC").Find(&apps).Error
	return apps, err
}
