package model

import (
	"time"

	"gorm.io/datatypes"
)

// MetricsSnapshot 指标计数的定时快照
type MetricsSnapshot struct {
	ID            int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	DeploymentID  int64             `gorm:"not null;index:idx_snapshot_deployment" json:"deployment_id"`
	DeploymentKey string            `gorm:"size:64;not null" json:"-"`
	Counters      datatypes.JSONMap `gorm:"type:json" json:"counters"`
	TakenAt       time.Time         `gorm:"not null;index:idx_snapshot_deployment" json:"taken_at"`
}

// TableName 指定表名
func (MetricsSnapshot) TableName() string {
	return "metrics_snapshots"
}
