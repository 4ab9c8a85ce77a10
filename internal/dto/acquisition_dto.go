package dto

// UpdateCheckQuery 客户端更新检查参数
type UpdateCheckQuery struct {
	DeploymentKey  string `form:"deployment_key" binding:"required,max=64"`
	AppVersion     string `form:"app_version" binding:"required,max=50"`
	PackageHash    string `form:"package_hash" binding:"omitempty,max=128"`
	Label          string `form:"label" binding:"omitempty,max=50"`
	ClientUniqueID string `form:"client_unique_id" binding:"omitempty,max=128"`
}

// DeployReportRequest 安装结果上报
type DeployReportRequest struct {
	DeploymentKey             string `json:"deployment_key" binding:"required,max=64"`
	ClientUniqueID            string `json:"client_unique_id" binding:"omitempty,max=128"`
	Label                     string `json:"label" binding:"omitempty,max=50"`
	AppVersion                string `json:"app_version" binding:"omitempty,max=50"`
	Status                    string `json:"status" binding:"required"`
	PreviousLabelOrAppVersion string `json:"previous_label_or_app_version" binding:"omitempty,max=50"`
	PreviousDeploymentKey     string `json:"previous_deployment_key" binding:"omitempty,max=64"`
}

// DownloadReportRequest 下载完成上报
type DownloadReportRequest struct {
	DeploymentKey  string `json:"deployment_key" binding:"required,max=64"`
	ClientUniqueID string `json:"client_unique_id" binding:"omitempty,max=128"`
	Label          string `json:"label" binding:"required,max=50"`
}

// UninstallReportRequest 客户端卸载上报
type UninstallReportRequest struct {
	DeploymentKey  string `json:"deployment_key" binding:"required,max=64"`
	ClientUniqueID string `json:"client_unique_id" binding:"required,max=128"`
}
