package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyadmin/backend/internal/domain"
)

// Response 通用响应体，失败时 message 为中文提示
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// APIKeyResponse POST /create 的响应体
type APIKeyResponse struct {
	Success bool   `json:"success"`
	APIKey  string `json:"apiKey"`
}

// LoginResponse POST /login-admin 的响应体
type LoginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// DashboardResponse GET /dashboard-data 的响应体
type DashboardResponse struct {
	Success bool                `json:"success"`
	Users   []domain.User       `json:"users"`
	APIKeys []domain.APIKeyView `json:"apikeys"`
}

// Success 成功响应（200），fields 合并到 {success:true} 中
func Success(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail 失败响应 {success:false, message}
func Fail(c *gin.Context, httpCode int, msg string) {
	c.AbortWithStatusJSON(httpCode, Response{Success: false, Message: msg})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, msg)
}

// Unauthorized 未认证错误（401）
func Unauthorized(c *gin.Context, msg string) {
	Fail(c, http.StatusUnauthorized, msg)
}

// Forbidden 无权限错误（403）
func Forbidden(c *gin.Context, msg string) {
	Fail(c, http.StatusForbidden, msg)
}

// NotFound 资源不存在错误（404）
func NotFound(c *gin.Context, msg string) {
	Fail(c, http.StatusNotFound, msg)
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context, msg string) {
	Fail(c, http.StatusInternalServerError, msg)
}
