package dto

import "time"

// CreateAppRequest 创建应用请求, 同时创建 Staging/Production 两个部署
type CreateAppRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// AppResponse 应用响应
type AppResponse struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Deployments []*DeploymentResponse `json:"deployments"`
	CreatedAt   time.Time             `json:"created_at"`
}
