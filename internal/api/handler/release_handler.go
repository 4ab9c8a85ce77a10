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

type ReleaseHandler struct {
	service service.ReleaseService
}

func NewReleaseHandler(service service.ReleaseService) *ReleaseHandler {
	return &ReleaseHandler{service: service}
}

// UploadURL 获取包上传地址
// @Router /api/v1/apps/{app}/deployments/{deployment}/upload_url [post]
func (h *ReleaseHandler) UploadURL(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.UploadURL(c.Request.Context(), param.App, param.Deployment)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Create 发布新版本
// @Router /api/v1/apps/{app}/deployments/{deployment}/release [post]
func (h *ReleaseHandler) Create(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}
	var req dto.CreateReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), param.App, param.Deployment, &req, c.GetString(constants.CtxKeyUsername))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Update 修改发布
// @Router /api/v1/apps/{app}/deployments/{deployment}/release [patch]
func (h *ReleaseHandler) Update(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}
	var req dto.UpdateReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.Update(c.Request.Context(), param.App, param.Deployment, &req, c.GetString(constants.CtxKeyUsername))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Disable 禁用发布
// @Router /api/v1/apps/{app}/deployments/{deployment}/releases/{label}/disable [post]
func (h *ReleaseHandler) Disable(c *gin.Context) {
	var param dto.LabelParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.Disable(c.Request.Context(), param.App, param.Deployment, param.Label, c.GetString(constants.CtxKeyUsername))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Promote 推广到其他部署
// @Router /api/v1/apps/{app}/deployments/{deployment}/promote/{dst} [post]
func (h *ReleaseHandler) Promote(c *gin.Context) {
	var param dto.PromoteParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}
	var req dto.PromoteRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.Promote(c.Request.Context(), param.App, param.Source, param.Target, &req, c.GetString(constants.CtxKeyUsername))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Rollback 回滚
// @Router /api/v1/apps/{app}/deployments/{deployment}/rollback [post]
func (h *ReleaseHandler) Rollback(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}
	var req dto.RollbackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.Rollback(c.Request.Context(), param.App, param.Deployment, &req, c.GetString(constants.CtxKeyUsername))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// History 发布历史
// @Router /api/v1/apps/{app}/deployments/{deployment}/history [get]
func (h *ReleaseHandler) History(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.History(c.Request.Context(), param.App, param.Deployment)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Clear 清空发布历史及指标
// @Router /api/v1/apps/{app}/deployments/{deployment}/history [delete]
func (h *ReleaseHandler) Clear(c *gin.Context) {
	var param dto.DeploymentParam
	if err := c.ShouldBindUri(&param); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	if err := h.service.Clear(c.Request.Context(), param.App, param.Deployment, c.GetString(constants.CtxKeyUsername)); err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, nil)
}

// bindOptionalJSON 请求体可以为空
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}
