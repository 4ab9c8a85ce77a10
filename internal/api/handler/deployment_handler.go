package handler

import (
	"github.com/gin-gonic/gin"

	"ota-server/internal/dto"
	"ota-server/internal/service"
	"ota-server/pkg/constants"
	"ota-server/pkg/errors"
	"ota-server/pkg/responses"
	"ota-server/pkg/utils"
)

type DeploymentHandler struct {
	service service.DeploymentService
}

func NewDeploymentHandler(service service.DeploymentService) *DeploymentHandler {
	return &DeploymentHandler{service: service}
}

// List 部署列表
// @Router /api/v1/apps/{app}/deployments [get]
func (h *DeploymentHandler) List(c *gin.Context) {
	var param dto.AppParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.List(c.Request.Context(), param.App)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Create 创建部署
// @Router /api/v1/apps/{app}/deployments [post]
func (h *DeploymentHandler) Create(c *gin.Context) {
	var param dto.AppParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}
	var req dto.CreateDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), param.App, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// RotateKey 更换部署Key
// @Router /api/v1/apps/{app}/deployments/{deployment}/rotate_key [post]
func (h *DeploymentHandler) RotateKey(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.RotateKey(c.Request.Context(), param.App, param.Deployment, c.GetString(constants.CtxKeyUsername))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}
