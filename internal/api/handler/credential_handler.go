package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/LimoEisbxr/untis-pro-sub002/internal/dto"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/service"
	pkgerrors "github.com/LimoEisbxr/untis-pro-sub002/pkg/errors"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/response"
)

// CredentialHandler Untis 凭据模块 HTTP 处理器
// 凭据只属于当前用户自己，所有操作都以上下文中的 user_id 为准。
type CredentialHandler struct {
	credSvc service.CredentialService
}

// NewCredentialHandler 创建 CredentialHandler
func NewCredentialHandler(credSvc service.CredentialService) *CredentialHandler {
	return &CredentialHandler{credSvc: credSvc}
}

// SetCredential 设置/更新 Untis 凭据
// PUT /api/v1/credentials
func (h *CredentialHandler) SetCredential(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SetCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.credSvc.Set(c.Request.Context(), userID, &req); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

// GetCredential 查询凭据信息（不含密钥材料）
// GET /api/v1/credentials
func (h *CredentialHandler) GetCredential(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	info, err := h.credSvc.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrCredentialMissing) {
			response.NotFound(c, 12001, "尚未配置 Untis 凭据")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, info)
}

// DeleteCredential 删除凭据
// DELETE /api/v1/credentials
func (h *CredentialHandler) DeleteCredential(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.credSvc.Delete(c.Request.Context(), userID); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
