package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyadmin/backend/internal/service"
)

// APIKeyHandler API Key 生成处理器
type APIKeyHandler struct {
	keys *service.APIKeyService
	log  *zap.Logger
}

// NewAPIKeyHandler 创建 API Key 处理器
func NewAPIKeyHandler(keys *service.APIKeyService, log *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, log: log}
}

// Create 生成一个新的 API Key，不落库
//
// @Summary 生成 API Key
// @Description 生成 sk-sm-v1- 前缀的随机 API Key，仅返回给调用方，保存用户时才写入存储
// @Tags APIKeys
// @Produce json
// @Success 200 {object} APIKeyResponse
// @Failure 500 {object} Response
// @Router /create [post]
func (h *APIKeyHandler) Create(c *gin.Context) {
	key, err := h.keys.Generate()
	if err != nil {
		h.log.Error("failed to generate api key", zap.Error(err))
		InternalError(c, MsgAPIKeyCreateFailed)
		return
	}
	c.JSON(http.StatusOK, APIKeyResponse{Success: true, APIKey: key})
}
