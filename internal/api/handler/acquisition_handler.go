package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ota-server/internal/core/acquisition"
	"ota-server/internal/dto"
	"ota-server/pkg/errors"
	"ota-server/pkg/utils"
)

// AcquisitionHandler 客户端SDK接口, 使用真实HTTP状态码
type AcquisitionHandler struct {
	service *acquisition.Service
}

func NewAcquisitionHandler(service *acquisition.Service) *AcquisitionHandler {
	return &AcquisitionHandler{service: service}
}

// UpdateCheck 检查更新
// @Router /v0.1/public/codepush/update_check [get]
func (h *AcquisitionHandler) UpdateCheck(c *gin.Context) {
	var query dto.UpdateCheckQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.FormatValidationError(err)})
		return
	}

	info, err := h.service.CheckForUpdate(c.Request.Context(), acquisition.UpdateCheckRequest{
		DeploymentKey:  query.DeploymentKey,
		AppVersion:     query.AppVersion,
		PackageHash:    query.PackageHash,
		Label:          query.Label,
		ClientUniqueID: query.ClientUniqueID,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"update_info": info})
}

// ReportDeploy 上报安装结果
// @Router /v0.1/public/codepush/report_status/deploy [post]
func (h *AcquisitionHandler) ReportDeploy(c *gin.Context) {
	var req dto.DeployReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.FormatValidationError(err)})
		return
	}

	err := h.service.ReportStatus(c.Request.Context(), acquisition.StatusReport{
		DeploymentKey:         req.DeploymentKey,
		ClientUniqueID:        req.ClientUniqueID,
		Label:                 req.Label,
		AppVersion:            req.AppVersion,
		Status:                req.Status,
		PreviousLabel:         req.PreviousLabelOrAppVersion,
		PreviousDeploymentKey: req.PreviousDeploymentKey,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.String(http.StatusOK, "OK")
}

// ReportDownload 上报下载完成
// @Router /v0.1/public/codepush/report_status/download [post]
func (h *AcquisitionHandler) ReportDownload(c *gin.Context) {
	var req dto.DownloadReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.FormatValidationError(err)})
		return
	}

	if err := h.service.ReportDownload(c.Request.Context(), req.DeploymentKey, req.ClientUniqueID, req.Label); err != nil {
		abort(c, err)
		return
	}

	c.String(http.StatusOK, "OK")
}

// ReportUninstall 上报客户端卸载
// @Router /v0.1/public/codepush/report_status/uninstall [post]
func (h *AcquisitionHandler) ReportUninstall(c *gin.Context) {
	var req dto.UninstallReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.FormatValidationError(err)})
		return
	}

	if err := h.service.ForgetClient(c.Request.Context(), req.DeploymentKey, req.ClientUniqueID); err != nil {
		abort(c, err)
		return
	}

	c.String(http.StatusOK, "OK")
}

func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.Code(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeValidationError, errors.CodeBadRequest:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": errors.Message(err)})
}
