package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-swarmscope/config"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
)

// TestModule_Lifecycle 测试 Fx 模块的启动与停止
func TestModule_Lifecycle(t *testing.T) {
	cfg := config.NewConfig()
	cfg.DHT.Host = "127.0.0.1"

	var (
		d     *DHT
		iface pkgif.DHT
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&d, &iface),
	)
	app.RequireStart()

	assert.Same(t, d, iface)
	assert.Positive(t, d.Port())
	assert.True(t, d.Bootstrapped(), "没有引导节点时作为首个节点运行")

	app.RequireStop()
	assert.True(t, d.closed.Load())

	t.Log("✅ DHT 模块生命周期正确")
}

// TestConfigFromUnified 测试统一配置转换
func TestConfigFromUnified(t *testing.T) {
	cfg := config.NewConfig()
	cfg.DHT.Port = 4000
	cfg.DHT.Bootstrap = []string{"127.0.0.1:1"}
	cfg.DHT.Ephemeral = false

	c := ConfigFromUnified(cfg)
	assert.Equal(t, 4000, c.Port)
	assert.Equal(t, []string{"127.0.0.1:1"}, c.Bootstrap)
	assert.False(t, c.Ephemeral)
	assert.Equal(t, cfg.DHT.RecordTTL.Duration(), c.RecordTTL)
	assert.NotNil(t, c.Clock)

	assert.Equal(t, DefaultConfig().Port, ConfigFromUnified(nil).Port)
}
