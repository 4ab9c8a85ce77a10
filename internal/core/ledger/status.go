package ledger

import "fmt"

// Status 指标状态
type Status string

const (
	StatusActive              Status = "Active"
	StatusDownloaded          Status = "Downloaded"
	StatusDeploymentSucceeded Status = "DeploymentSucceeded"
	StatusDeploymentFailed    Status = "DeploymentFailed"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDownloaded, StatusDeploymentSucceeded, StatusDeploymentFailed:
		return true
	}
	return false
}

// ParseReportStatus 解析客户端上报的状态, Active 只由服务端维护
func ParseReportStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() || status == StatusActive {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return status, nil
}

// Field 计数字段名 "<label>:<status>"
func Field(label string, status Status) string {
	return label + ":" + string(status)
}
