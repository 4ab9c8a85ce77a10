package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ota-server/internal/model"
	"ota-server/pkg/constants"
)

type ReleaseRepository struct {
	db *gorm.DB
}

func NewReleaseRepository(db *gorm.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// CreateWithNextLabel 分配下一个标签并写入发布记录
// 标签计数器在数据库内原子自增, 事务期间行锁保证同一部署串行
func (r *ReleaseRepository) CreateWithNextLabel(ctx context.Context, release *model.Release) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Deployment{}).
			Where("id = ?", release.DeploymentID).
			Update("label_seq", gorm.Expr("label_seq + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var seq int64
		if err := tx.Model(&model.Deployment{}).
			Where("id = ?", release.DeploymentID).
			Pluck("label_seq", &seq).Error; err != nil {
			return err
		}

		release.ID = 0
		release.LabelSeq = seq
		release.Label = fmt.Sprintf("%s%d", constants.LabelPrefix, seq)
		return tx.Create(release).Error
	})
}

// ListByDeployment 按标签顺序(旧→新)查询发布历史
func (r *ReleaseRepository) ListByDeployment(ctx context.Context, deploymentID int64) ([]model.Release, error) {
	var releases []model.Release
	err := r.db.WithContext(ctx).
		Where("deployment_id = ?", deploymentID).
		Order("label_seq ASC").
		Find(&releases).Error
	return releases, err
}

// FindByLabel 查询指定标签
func (r *ReleaseRepository) FindByLabel(ctx context.Context, deploymentID int64, label string) (*model.Release, error) {
	var release model.Release
	if err := r.db.WithContext(ctx).
		Where("deployment_id = ? AND label = ?", deploymentID, label).
		First(&release).Error; err != nil {
		return nil, err
	}
	return &release, nil
}

// UpdateFields 更新非标识字段
func (r *ReleaseRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Release{ID: id}).Updates(fields).Error
}

// DeleteByDeployment 删除部署的全部发布记录
func (r *ReleaseRepository) DeleteByDeployment(ctx context.Context, deploymentID int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("deployment_id = ?", deploymentID).Delete(&model.Release{})
	return result.RowsAffected, result.Error
}
