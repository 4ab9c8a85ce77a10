package handler

import (
	"github.com/gin-gonic/gin"

	"ota-server/internal/dto"
	"ota-server/internal/service"
	"ota-server/pkg/errors"
	"ota-server/pkg/responses"
	"ota-server/pkg/utils"
)

type AppHandler struct {
	service service.AppService
}

func NewAppHandler(service service.AppService) *AppHandler {
	return &AppHandler{service: service}
}

// Create 创建应用, 同时生成 Staging/Production 部署
// @Router /api/v1/apps [post]
func (h *AppHandler) Create(c *gin.Context) {
	var req dto.CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, errors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// List 应用列表
// @Router /api/v1/apps [get]
func (h *AppHandler) List(c *gin.Context) {
	resp, err := h.service.List(c.Request.Context())
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}
