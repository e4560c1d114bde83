package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyadmin/backend/internal/monitoring"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	checker *monitoring.HealthChecker
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(checker *monitoring.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health 返回各依赖的健康报告，不健康时返回 503
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.checker.CheckHealth(c.Request.Context())

	status := http.StatusOK
	if report.Status == monitoring.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
