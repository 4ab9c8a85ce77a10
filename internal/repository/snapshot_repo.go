package repository

import (
	"context"

	"gorm.io/gorm"

	"ota-server/internal/model"
)

type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Create(ctx context.Context, snapshot *model.MetricsSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// ListByDeployment 查询最近的快照(新→旧)
func (r *SnapshotRepository) ListByDeployment(ctx context.Context, deploymentID int64, limit int) ([]model.MetricsSnapshot, error) {
	var snapshots []model.MetricsSnapshot
	err := r.db.WithContext(ctx).
		Where("deployment_id = ?", deploymentID).
		Order("taken_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}
