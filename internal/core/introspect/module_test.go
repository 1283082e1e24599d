package introspect

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-swarmscope/config"
	"github.com/dep2p/go-swarmscope/internal/core/instrumented"
	"github.com/dep2p/go-swarmscope/internal/core/metrics"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
	"github.com/dep2p/go-swarmscope/tests/mocks"
)

func newApp(t *testing.T, cfg *config.Config) (*fxtest.App, *Server) {
	t.Helper()

	var s *Server
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() pkgif.Swarm { return mocks.NewMockSwarm(key(0)) }),
		instrumented.Module,
		metrics.Module,
		Module,
		fx.Populate(&s),
	)
	return app, s
}

// TestModule 启用时随应用启动与停止
func TestModule(t *testing.T) {
	app, s := newApp(t, config.NewConfig())
	require.NotNil(t, s)

	app.RequireStart()
	assert.True(t, s.Running())

	for _, path := range []string{"/swarm/summary", "/metrics"} {
		resp, err := http.Get("http://" + s.Addr() + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	app.RequireStop()
	assert.False(t, s.Running())

	t.Log("✅ 模块生命周期正确")
}

// TestModule_MetricsDisabled 关闭指标时不挂载 /metrics
func TestModule_MetricsDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Introspect.EnableMetrics = false

	app, s := newApp(t, cfg)
	app.RequireStart()
	defer app.RequireStop()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestModule_Disabled 未启用时不提供服务
func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Introspect.Enable = false

	app, s := newApp(t, cfg)
	assert.Nil(t, s)
	app.RequireStart()
	app.RequireStop()
}

// TestModule_BindFailure 绑定失败导致应用启动失败
func TestModule_BindFailure(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Introspect.Host = "203.0.113.1"

	app, _ := newApp(t, cfg)
	err := app.Start(context.Background())
	assert.ErrorIs(t, err, ErrBindFailure)
}

// TestConfigFromUnified 配置转换
func TestConfigFromUnified(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Introspect.Port = 8080

	c, ok := ConfigFromUnified(cfg)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:8080", c.Addr)
	assert.Equal(t, cfg.Introspect.ReadTimeout.Duration(), c.ReadTimeout)
	assert.Nil(t, c.Gatherer)

	_, ok = ConfigFromUnified(nil)
	assert.True(t, ok)
}
