package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// HealthStatus 健康状态
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck 单项检查结果
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthReport 健康报告
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Checks    []HealthCheck `json:"checks"`
	Version   string        `json:"version"`
}

// Pinger 可探测的依赖（存储、Redis）
type Pinger interface {
	Health(ctx context.Context) error
}

// PingerFunc 将函数适配为 Pinger
type PingerFunc func(ctx context.Context) error

// Health 实现 Pinger
func (f PingerFunc) Health(ctx context.Context) error {
	return f(ctx)
}

// HealthChecker 健康检查器
type HealthChecker struct {
	deps      map[string]Pinger
	order     []string
	logger    *zap.Logger
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(logger *zap.Logger, version string) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthChecker{
		deps:      make(map[string]Pinger),
		logger:    logger,
		startTime: time.Now(),
		version:   version,
		timeout:   3 * time.Second,
	}
}

// AddDependency 注册一个外部依赖，失败时整体状态为 unhealthy
func (hc *HealthChecker) AddDependency(name string, p Pinger) {
	if _, exists := hc.deps[name]; !exists {
		hc.order = append(hc.order, name)
	}
	hc.deps[name] = p
}

// CheckHealth 执行健康检查
func (hc *HealthChecker) CheckHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Timestamp: time.Now(),
		Uptime:    time.Since(hc.startTime).Round(time.Second).String(),
		Version:   hc.version,
		Checks:    make([]HealthCheck, 0, len(hc.order)+1),
	}

	for _, name := range hc.order {
		report.Checks = append(report.Checks, hc.checkDependency(ctx, name, hc.deps[name]))
	}
	report.Checks = append(report.Checks, hc.checkRuntime())

	overallStatus := HealthStatusHealthy
	for _, check := range report.Checks {
		// 确定整体状态
		switch check.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus != HealthStatusUnhealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	report.Status = overallStatus
	return report
}

func (hc *HealthChecker) checkDependency(ctx context.Context, name string, p Pinger) HealthCheck {
	start := time.Now()
	check := HealthCheck{
		Name:        name,
		LastChecked: start,
	}

	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	if err := p.Health(ctx); err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("%s check failed", name)
		hc.logger.Warn("dependency health check failed",
			zap.String("dependency", name),
			zap.Error(err),
		)
	} else {
		check.Status = HealthStatusHealthy
	}

	check.Duration = time.Since(start)
	return check
}

// checkRuntime 检查 Goroutine 数量与内存占用
func (hc *HealthChecker) checkRuntime() HealthCheck {
	start := time.Now()
	check := HealthCheck{
		Name:        "runtime",
		LastChecked: start,
		Status:      HealthStatusHealthy,
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memoryUsageMB := float64(m.Alloc) / 1024 / 1024
	numGoroutines := runtime.NumGoroutine()

	check.Message = fmt.Sprintf("goroutines: %d, memory: %.2f MB", numGoroutines, memoryUsageMB)
	if numGoroutines > 10000 || memoryUsageMB > 1024 {
		check.Status = HealthStatusDegraded
	}

	check.Duration = time.Since(start)
	return check
}
