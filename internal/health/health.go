package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"

	"keyadmin/backend/internal/monitoring"
)

// maxGoroutines 存活检查允许的最大 Goroutine 数
const maxGoroutines = 10000

// Checker 基于 heptiolabs/healthcheck 的存活 / 就绪探针
//
// 存活检查只看进程自身状态，就绪检查探测存储与 Redis 等外部依赖。
type Checker struct {
	handler healthcheck.Handler
	timeout time.Duration
}

// NewChecker 创建探针处理器
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	return &Checker{handler: h, timeout: timeout}
}

// AddReadiness 注册就绪依赖
func (c *Checker) AddReadiness(name string, dep monitoring.Pinger) {
	c.handler.AddReadinessCheck(name, healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		return dep.Health(ctx)
	}, c.timeout))
}

// LiveEndpoint 存活探针
func (c *Checker) LiveEndpoint() http.HandlerFunc {
	return c.handler.LiveEndpoint
}

// ReadyEndpoint 就绪探针
func (c *Checker) ReadyEndpoint() http.HandlerFunc {
	return c.handler.ReadyEndpoint
}
