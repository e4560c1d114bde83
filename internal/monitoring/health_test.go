package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	hc := NewHealthChecker(nil, "test")
	hc.AddDependency("database", PingerFunc(func(context.Context) error { return nil }))

	report := hc.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusHealthy, report.Status)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "database", report.Checks[0].Name)
	assert.Equal(t, "runtime", report.Checks[1].Name)
	assert.Equal(t, "test", report.Version)
}

func TestHealthChecker_DependencyDown(t *testing.T) {
	hc := NewHealthChecker(nil, "test")
	hc.AddDependency("database", PingerFunc(func(context.Context) error { return nil }))
	hc.AddDependency("redis", PingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") }))

	report := hc.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, report.Status)
	assert.Equal(t, HealthStatusUnhealthy, report.Checks[1].Status)
	// 不向外暴露底层错误
	assert.NotContains(t, report.Checks[1].Message, "refused")
}

func TestHealthChecker_ReplaceDependency(t *testing.T) {
	hc := NewHealthChecker(nil, "test")
	hc.AddDependency("database", PingerFunc(func(context.Context) error { return errors.New("x") }))
	hc.AddDependency("database", PingerFunc(func(context.Context) error { return nil }))

	report := hc.CheckHealth(context.Background())
	assert.Len(t, report.Checks, 2)
	assert.Equal(t, HealthStatusHealthy, report.Status)
}
