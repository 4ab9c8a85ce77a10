package dto

import "time"

// CreateDeploymentRequest 创建部署请求
type CreateDeploymentRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// DeploymentResponse 部署响应
type DeploymentResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}
