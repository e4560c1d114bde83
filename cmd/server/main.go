package main

// @title KeyAdmin Backend API
// @version 1.0.0
// @description API Key 签发、用户目录与管理后台接口文档
// @contact.name API Support
// @contact.email support@example.com
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 使用格式：Bearer {token}，浏览器会话也可使用 access_token cookie

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "keyadmin/backend/docs" // Swagger docs
	"keyadmin/backend/internal/auth"
	jwtpkg "keyadmin/backend/internal/auth/jwt"
	"keyadmin/backend/internal/config"
	"keyadmin/backend/internal/health"
	"keyadmin/backend/internal/logger"
	"keyadmin/backend/internal/monitoring"
	"keyadmin/backend/internal/service"
	"keyadmin/backend/internal/storage"
	"keyadmin/backend/internal/storage/hybrid"
	httptransport "keyadmin/backend/internal/transport/http"
	"keyadmin/backend/internal/websocket"
)

const version = "1.0.0"

// main 启动 API Key 管理后台的 HTTP 服务与仪表盘推送。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("starting keyadmin server",
		zap.String("version", version),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := hybrid.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Warn("failed to close storage", zap.Error(err))
		}
	}()

	// 监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := monitoring.NewHealthChecker(log, version)
	probes := health.NewChecker(3 * time.Second)
	backends.RegisterHealth(healthChecker.AddDependency)
	backends.RegisterHealth(probes.AddReadiness)

	// 服务层
	tokens := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.SessionExpiry)
	authService := auth.NewService(backends.Store, tokens, backends.Blacklist)
	apiKeyService := service.NewAPIKeyService()
	directoryService := service.NewDirectoryService(backends.Store, cfg.Key.OfflineAfter, log)

	log.Info("session configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("session_expiry", cfg.JWT.SessionExpiry),
		zap.Duration("key_offline_after", cfg.Key.OfflineAfter),
	)

	if cfg.Log.Development {
		seedAdmin(ctx, backends.Store, authService, cfg.Admin, log)
	}

	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, log, metrics)
	directoryService.SetPublisher(wsHub)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:           cfg,
		APIKeyService:    apiKeyService,
		DirectoryService: directoryService,
		AuthService:      authService,
		WebSocketHub:     wsHub,
		Metrics:          metrics,
		HealthChecker:    healthChecker,
		Probes:           probes,
		Logger:           log,
	})

	httpAddr := cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting WebSocket hub")
		return wsHub.Run(groupCtx)
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}

// seedAdmin 开发模式下创建默认管理员，邮箱或密码未配置时跳过
func seedAdmin(ctx context.Context, admins storage.AdminRepository, authService *auth.Service, cfg config.AdminConfig, log *zap.Logger) {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return
	}

	_, err := admins.GetAdminByEmail(ctx, cfg.SeedEmail)
	switch {
	case err == nil:
		log.Info("seed admin already exists, skipping", zap.String("email", cfg.SeedEmail))
		return
	case !errors.Is(err, storage.ErrAdminNotFound):
		log.Error("failed to look up seed admin", zap.Error(err))
		return
	}

	if err := authService.Register(ctx, auth.Credentials{Email: cfg.SeedEmail, Password: cfg.SeedPassword}); err != nil {
		log.Error("failed to create seed admin", zap.Error(err))
		return
	}

	log.Warn("seed admin created (development only)", zap.String("email", cfg.SeedEmail))
}
