package acquisition

import (
	"context"

	"go.uber.org/zap"

	"ota-server/internal/core/ledger"
	"ota-server/pkg/errors"
)

// StatusReport 客户端安装结果上报
type StatusReport struct {
	DeploymentKey         string
	ClientUniqueID        string
	Label                 string
	AppVersion            string
	Status                string
	PreviousLabel         string
	PreviousDeploymentKey string
}

// ReportStatus 校验后异步写入指标, 不等待写入结果
func (s *Service) ReportStatus(ctx context.Context, report StatusReport) error {
	if report.DeploymentKey == "" {
		return errors.Validation("deployment_key 不能为空")
	}
	status, err := ledger.ParseReportStatus(report.Status)
	if err != nil {
		return errors.Validation("status %q 不合法", report.Status)
	}

	// 运行二进制自带包时以二进制版本作为标签
	label := report.Label
	if label == "" {
		label = report.AppVersion
	}
	if label == "" {
		return errors.Validation("label 与 app_version 不能同时为空")
	}

	job := ledger.Job{
		Kind:           ledger.JobIncrement,
		DeploymentKey:  report.DeploymentKey,
		Label:          label,
		Status:         status,
		ClientUniqueID: report.ClientUniqueID,
	}
	if status == ledger.StatusDeploymentSucceeded {
		job.Kind = ledger.JobAdoption
		job.Adoption = ledger.Adoption{
			DeploymentKey:  report.DeploymentKey,
			Label:          label,
			PreviousKey:    report.PreviousDeploymentKey,
			PreviousLabel:  report.PreviousLabel,
			ClientUniqueID: report.ClientUniqueID,
		}
	}
	s.submit(ctx, job)
	return nil
}

// ReportDownload 下载完成上报
func (s *Service) ReportDownload(ctx context.Context, deploymentKey, clientUniqueID, label string) error {
	if deploymentKey == "" || label == "" {
		return errors.Validation("deployment_key 与 label 不能为空")
	}
	s.submit(ctx, ledger.Job{
		Kind:           ledger.JobIncrement,
		DeploymentKey:  deploymentKey,
		Label:          label,
		Status:         ledger.StatusDownloaded,
		ClientUniqueID: clientUniqueID,
	})
	return nil
}

// ForgetClient 客户端卸载后移除其当前标签记录
func (s *Service) ForgetClient(ctx context.Context, deploymentKey, clientUniqueID string) error {
	if deploymentKey == "" || clientUniqueID == "" {
		return errors.Validation("deployment_key 与 client_unique_id 不能为空")
	}
	s.submit(ctx, ledger.Job{
		Kind:           ledger.JobForgetClient,
		DeploymentKey:  deploymentKey,
		ClientUniqueID: clientUniqueID,
	})
	return nil
}

func (s *Service) submit(_ context.Context, job ledger.Job) {
	if s.sink == nil {
		return
	}
	if !s.sink.Submit(job) {
		s.logger.Debug("指标写入已丢弃", zap.Stringer("job", job))
	}
}
