package dto

// LimitQuery 条数限制
type LimitQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"` // 可选：默认20
}

// GetLimit 获取条数
func (q *LimitQuery) GetLimit() int {
	if q.Limit < 1 {
		return 20
	}
	return q.Limit
}

// AppParam 应用路径参数
type AppParam struct {
	App string `uri:"app" binding:"required,max=100"`
}

// DeploymentParam 部署路径参数
type DeploymentParam struct {
	App        string `uri:"app" binding:"required,max=100"`
	Deployment string `uri:"deployment" binding:"required,max=100"`
}

// LabelParam 发布路径参数
type LabelParam struct {
	DeploymentParam
	Label string `uri:"label" binding:"required,max=20"`
}

// PromoteParam 推广路径参数, gin 同层通配参数须同名, 源部署沿用 :deployment
type PromoteParam struct {
	App    string `uri:"app" binding:"required,max=100"`
	Source string `uri:"deployment" binding:"required,max=100"`
	Target string `uri:"dst" binding:"required,max=100"`
}

// UserInfo 操作人信息
type UserInfo struct {
	Username string `json:"username"`
}
