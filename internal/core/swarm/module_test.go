package swarm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-swarmscope/config"
	"github.com/dep2p/go-swarmscope/internal/discovery/dht"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
)

// TestModule 测试 Fx 模块装配与生命周期
func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.DHT.Host = "127.0.0.1"
	cfg.Identity.SecretKey = strings.Repeat("11", 32)

	var s *Swarm
	var iface pkgif.Swarm
	app := fxtest.New(t,
		fx.Supply(cfg),
		dht.Module,
		Module,
		fx.Populate(&s, &iface),
	)
	app.RequireStart()

	require.NotNil(t, s)
	assert.Same(t, s, iface)
	assert.Positive(t, s.Port())

	want, err := KeyPairFromHex(cfg.Identity.SecretKey)
	require.NoError(t, err)
	assert.Equal(t, want.Public, s.PublicKey())

	app.RequireStop()
	assert.ErrorIs(t, s.Start(context.Background()), ErrSwarmClosed)

	t.Log("✅ Fx 模块正确")
}

// TestConfigFromUnified 测试统一配置转换
func TestConfigFromUnified(t *testing.T) {
	c, err := ConfigFromUnified(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)

	cfg := config.NewConfig()
	cfg.DHT.Host = "127.0.0.1"
	cfg.Swarm.Topics = []string{strings.Repeat("ab", 32)}
	cfg.Swarm.MaxPeers = 5

	c, err = ConfigFromUnified(cfg)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", c.Host)
	assert.Equal(t, 0, c.Port)
	assert.Equal(t, 5, c.MaxPeers)
	require.Len(t, c.Topics, 1)
	assert.Len(t, c.Topics[0], TopicSize)

	cfg.Swarm.Topics = []string{"zz"}
	_, err = ConfigFromUnified(cfg)
	assert.ErrorIs(t, err, ErrInvalidTopic)
}

// TestKeyPairFromConfig 测试身份来源优先级
func TestKeyPairFromConfig(t *testing.T) {
	seed := strings.Repeat("22", 32)
	kp, err := KeyPairFromConfig(config.DefaultIdentityConfig().WithSecretKey(seed).WithKeyFile("/nonexistent/key"))
	require.NoError(t, err)
	want, err := KeyPairFromHex(seed)
	require.NoError(t, err)
	assert.Equal(t, want.Public, kp.Public)

	kp, err = KeyPairFromConfig(config.DefaultIdentityConfig())
	require.NoError(t, err)
	assert.Len(t, kp.Public, 32)
}
