package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keyadmin"

// Metrics 监控指标
//
// 所有指标注册在私有 Registry 上，可以在同一进程（测试）中多次创建。
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 业务指标
	APIKeysGenerated prometheus.Counter
	UsersSaved       prometheus.Counter
	UsersDeleted     prometheus.Counter
	AdminLogins      *prometheus.CounterVec
	AdminRegistered  prometheus.Counter
	APIKeysByStatus  *prometheus.GaugeVec

	// 实时连接
	WebsocketClients prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"method", "endpoint"},
		),

		APIKeysGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_keys_generated_total",
			Help:      "Total number of API keys generated",
		}),

		UsersSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_saved_total",
			Help:      "Total number of users saved with an API key",
		}),

		UsersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_deleted_total",
			Help:      "Total number of users deleted with their API key",
		}),

		AdminLogins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_logins_total",
				Help:      "Admin login attempts by result",
			},
			[]string{"result"},
		),

		AdminRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admins_registered_total",
			Help:      "Total number of admins registered",
		}),

		APIKeysByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "api_keys",
				Help:      "API keys by derived status at the last dashboard read",
			},
			[]string{"status"},
		),

		WebsocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Number of connected dashboard websocket clients",
		}),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of internal errors by component",
			},
			[]string{"component"},
		),

		PanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Total number of recovered panics",
		}),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	if responseSize >= 0 {
		m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
	}
}

// RecordAdminLogin 记录管理员登录结果（success / invalid / error）
func (m *Metrics) RecordAdminLogin(result string) {
	m.AdminLogins.WithLabelValues(result).Inc()
}

// UpdateAPIKeyStatus 更新在线 / 离线 API Key 数量
func (m *Metrics) UpdateAPIKeyStatus(online, offline int) {
	m.APIKeysByStatus.WithLabelValues("online").Set(float64(online))
	m.APIKeysByStatus.WithLabelValues("offline").Set(float64(offline))
}

// RecordError 记录内部错误
func (m *Metrics) RecordError(component string) {
	m.ErrorsTotal.WithLabelValues(component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Registry 返回私有注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
