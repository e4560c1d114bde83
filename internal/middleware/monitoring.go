package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"keyadmin/backend/internal/monitoring"
)

// MonitoringMiddleware 监控中间件
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
}

// NewMonitoringMiddleware 创建监控中间件
func NewMonitoringMiddleware(metrics *monitoring.Metrics) *MonitoringMiddleware {
	return &MonitoringMiddleware{metrics: metrics}
}

// HTTPMetrics HTTP 指标中间件
func (mm *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			// 未匹配路由统一归类，避免标签基数随任意路径增长
			endpoint = "unmatched"
		}

		mm.metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			int64(c.Writer.Size()),
		)

		if c.Writer.Status() >= http.StatusInternalServerError {
			mm.metrics.RecordError("http")
		}
	}
}

// BusinessMetrics 业务指标中间件
func (mm *MonitoringMiddleware) BusinessMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		ok := status == http.StatusOK

		switch c.FullPath() {
		case "/create":
			if ok {
				mm.metrics.APIKeysGenerated.Inc()
			}
		case "/save-user":
			if ok {
				mm.metrics.UsersSaved.Inc()
			}
		case "/delete-user/:id":
			if ok {
				mm.metrics.UsersDeleted.Inc()
			}
		case "/register-admin":
			if ok {
				mm.metrics.AdminRegistered.Inc()
			}
		case "/login-admin":
			switch {
			case ok:
				mm.metrics.RecordAdminLogin("success")
			case status == http.StatusUnauthorized:
				mm.metrics.RecordAdminLogin("invalid")
			case status >= http.StatusInternalServerError:
				mm.metrics.RecordAdminLogin("error")
			}
		}
	}
}
