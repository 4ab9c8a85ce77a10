package model

import (
	"time"

	"ota-server/pkg/constants"
)

// Release 发布历史中的一条记录, 创建后只允许修改 rollout/is_disabled/is_mandatory/description/app_version
type Release struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DeploymentID int64  `gorm:"not null;uniqueIndex:uk_deployment_label;index:idx_deployment_seq" json:"deployment_id"`
	Label        string `gorm:"size:20;not null;uniqueIndex:uk_deployment_label" json:"label"`
	LabelSeq     int64  `gorm:"not null;index:idx_deployment_seq" json:"-"`

	// 包内容
	PackageHash string `gorm:"size:128;not null" json:"package_hash"`
	PackageSize int64  `gorm:"not null;default:0" json:"package_size"`
	BlobKey     string `gorm:"size:255" json:"blob_key"`

	// 发布控制
	AppVersion  string  `gorm:"size:100;not null" json:"app_version"` // semver 范围
	Rollout     *int    `json:"rollout"`                              // NULL 表示全量
	IsMandatory bool    `gorm:"not null;default:false" json:"is_mandatory"`
	IsDisabled  bool    `gorm:"not null;default:false" json:"is_disabled"`
	Description *string `gorm:"type:text" json:"description"`

	// 来源
	ReleasedBy         string  `gorm:"size:100" json:"released_by"`
	ReleaseMethod      string  `gorm:"size:20;not null" json:"release_method"`
	OriginalLabel      *string `gorm:"size:20" json:"original_label,omitempty"`
	OriginalDeployment *string `gorm:"size:100" json:"original_deployment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Release) TableName() string {
	return "releases"
}

// IsFullRollout 是否全量
func (r *Release) IsFullRollout() bool {
	return r.Rollout == nil || *r.Rollout >= constants.RolloutFull
}
