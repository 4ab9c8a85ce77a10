package handler

import (
	"github.com/gin-gonic/gin"

	"ota-server/internal/dto"
	"ota-server/internal/service"
	"ota-server/pkg/errors"
	"ota-server/pkg/responses"
	"ota-server/pkg/utils"
)

type MetricsHandler struct {
	service service.MetricsService
}

func NewMetricsHandler(service service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: service}
}

// Get 部署的安装指标: 标签 → 状态 → 数量
// @Router /api/v1/apps/{app}/deployments/{deployment}/metrics [get]
func (h *MetricsHandler) Get(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.Get(c.Request.Context(), param.App, param.Deployment)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// History 指标快照
// @Router /api/v1/apps/{app}/deployments/{deployment}/metrics/history [get]
func (h *MetricsHandler) History(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}
	var query dto.LimitQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.History(c.Request.Context(), param.App, param.Deployment, query.GetLimit())
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}
