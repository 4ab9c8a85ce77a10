package model

// App 客户端应用
type App struct {
	BaseModel
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`

	Deployments []Deployment `gorm:"foreignKey:AppID" json:"deployments,omitempty"`
}

// TableName 指定表名
func (App) TableName() string {
	return "apps"
}
