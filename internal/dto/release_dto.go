package dto

import "time"

// CreateReleaseRequest 上传发布请求, 包需先通过 upload_url 上传
type CreateReleaseRequest struct {
	PackageHash string  `json:"package_hash" binding:"required,max=128"`
	PackageSize int64   `json:"package_size" binding:"gte=0"`
	BlobKey     string  `json:"blob_key" binding:"required,max=255"`
	AppVersion  string  `json:"app_version" binding:"required,semver_range"` // 目标二进制版本范围
	Rollout     *int    `json:"rollout" binding:"omitempty,min=0,max=100"`   // 不传表示全量
	IsMandatory bool    `json:"is_mandatory"`
	IsDisabled  bool    `json:"is_disabled"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// UpdateReleaseRequest 修改发布请求, 只修改传入的字段
type UpdateReleaseRequest struct {
	Label       string  `json:"label" binding:"required,max=20"`
	AppVersion  *string `json:"app_version" binding:"omitempty,semver_range"`
	Rollout     *int    `json:"rollout" binding:"omitempty,min=0,max=100"`
	IsMandatory *bool   `json:"is_mandatory"`
	IsDisabled  *bool   `json:"is_disabled"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// PromoteRequest 推广请求, 覆盖字段只作用于目标部署的新发布
type PromoteRequest struct {
	Label       string  `json:"label" binding:"omitempty,max=20"` // 不传取源部署最新可用发布
	AppVersion  *string `json:"app_version" binding:"omitempty,semver_range"`
	Rollout     *int    `json:"rollout" binding:"omitempty,min=0,max=100"`
	IsMandatory *bool   `json:"is_mandatory"`
	IsDisabled  *bool   `json:"is_disabled"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// RollbackRequest 回滚请求
type RollbackRequest struct {
	TargetLabel string `json:"target_label" binding:"omitempty,max=20"` // 不传回滚到上一个不同的包
}

// UploadURLResponse 上传地址
type UploadURLResponse struct {
	URL         string    `json:"url"`
	BlobKey     string    `json:"blob_key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ReleaseResponse 发布响应
type ReleaseResponse struct {
	Label              string    `json:"label"`
	PackageHash        string    `json:"package_hash"`
	PackageSize        int64     `json:"package_size"`
	BlobKey            string    `json:"blob_key"`
	AppVersion         string    `json:"app_version"`
	Rollout            int       `json:"rollout"`
	IsMandatory        bool      `json:"is_mandatory"`
	IsDisabled         bool      `json:"is_disabled"`
	Description        string    `json:"description"`
	ReleasedBy         string    `json:"released_by"`
	ReleaseMethod      string    `json:"release_method"`
	OriginalLabel      string    `json:"original_label,omitempty"`
	OriginalDeployment string    `json:"original_deployment,omitempty"`
	UploadTime         time.Time `json:"upload_time"`
}
