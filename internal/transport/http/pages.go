package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyadmin/backend/web"
)

// servePage 返回内嵌页面
func servePage(name string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := web.Page(name)
		if err != nil {
			log.Error("embedded page missing", zap.String("page", name), zap.Error(err))
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", body)
	}
}
