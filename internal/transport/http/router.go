package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"keyadmin/backend/internal/auth"
	"keyadmin/backend/internal/config"
	"keyadmin/backend/internal/health"
	"keyadmin/backend/internal/middleware"
	"keyadmin/backend/internal/monitoring"
	"keyadmin/backend/internal/service"
	"keyadmin/backend/internal/websocket"
	"keyadmin/backend/web"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config           *config.Config
	APIKeyService    *service.APIKeyService
	DirectoryService *service.DirectoryService
	AuthService      *auth.Service
	WebSocketHub     *websocket.Hub            // 为空时不注册 /ws/dashboard
	Metrics          *monitoring.Metrics       // 为空时不注册 /metrics
	HealthChecker    *monitoring.HealthChecker // /health 详细报告
	Probes           *health.Checker           // /health/live 与 /health/ready
	Logger           *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	router.Use(middleware.RecoveryHandler(log, deps.Metrics))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics)
		router.Use(mm.HTTPMetrics(), mm.BusinessMetrics())
	}

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	apiKeyHandler := NewAPIKeyHandler(deps.APIKeyService, log)
	directoryHandler := NewDirectoryHandler(deps.DirectoryService, deps.Metrics, log)
	authHandler := NewAuthHandler(deps.AuthService, deps.Config.Admin.AllowRegistration, log)
	adminAuth := middleware.NewJWTAuth(deps.AuthService, log)

	// 页面
	router.GET("/", servePage("index.html", log))
	router.GET("/login", servePage("alogin.html", log))
	router.GET("/register", servePage("aregister.html", log))
	router.GET("/admin", servePage("admin.html", log))
	router.StaticFS("/static", http.FS(web.Static()))

	// 公开接口
	router.POST("/create", apiKeyHandler.Create)
	router.POST("/save-user", directoryHandler.SaveUser)
	router.POST("/register-admin", authHandler.Register)
	router.POST("/login-admin", authHandler.Login)

	// 管理员接口
	admin := router.Group("")
	admin.Use(adminAuth.RequireAdmin())
	{
		admin.POST("/logout-admin", authHandler.Logout)
		admin.DELETE("/delete-user/:id", directoryHandler.DeleteUser)
		admin.GET("/dashboard-data", directoryHandler.DashboardData)
		if deps.WebSocketHub != nil {
			admin.GET("/ws/dashboard", deps.WebSocketHub.Handler(middleware.ContextAdminEmail))
		}
	}

	// 健康检查与监控
	if deps.HealthChecker != nil {
		router.GET("/health", NewHealthHandler(deps.HealthChecker).Health)
	}
	if deps.Probes != nil {
		router.GET("/health/live", gin.WrapF(deps.Probes.LiveEndpoint()))
		router.GET("/health/ready", gin.WrapF(deps.Probes.ReadyEndpoint()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// Swagger 文档
	router.GET("/swagger/*any", middleware.SwaggerUIHeaders(), ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, "资源不存在")
	})

	return router
}
