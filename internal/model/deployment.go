package model

// Deployment 应用的一个发布通道(Staging/Production), 客户端通过 Key 访问
type Deployment struct {
	BaseModel
	AppID int64  `gorm:"not null;uniqueIndex:uk_app_deployment" json:"app_id"`
	Name  string `gorm:"size:100;not null;uniqueIndex:uk_app_deployment" json:"name"`
	Key   string `gorm:"size:64;not null;uniqueIndex" json:"key"`

	// 标签计数器, 只通过 label_seq = label_seq + 1 自增, 清空历史也不回退
	LabelSeq int64 `gorm:"not null;default:0" json:"label_seq"`

	App *App `gorm:"foreignKey:AppID" json:"app,omitempty"`
}

// TableName 指定表名
func (Deployment) TableName() string {
	return "deployments"
}
