package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	// 验证默认配置有效
	err := cfg.Validate()
	assert.NoError(t, err)

	t.Log("✅ NewConfig 测试通过")
}

// TestIdentityConfig 测试身份配置
func TestIdentityConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultIdentityConfig()
		assert.True(t, cfg.AutoGenerate)
		assert.Empty(t, cfg.SecretKey)
	})

	t.Run("Validate_SecretKey", func(t *testing.T) {
		cfg := DefaultIdentityConfig().WithSecretKey(strings.Repeat("ab", 32))
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Validate_ShortSecretKey", func(t *testing.T) {
		cfg := DefaultIdentityConfig().WithSecretKey("abcd")
		assert.Error(t, cfg.Validate())
	})

	t.Run("Validate_NotHex", func(t *testing.T) {
		cfg := DefaultIdentityConfig().WithSecretKey(strings.Repeat("zz", 32))
		assert.Error(t, cfg.Validate())
	})

	t.Log("✅ IdentityConfig 测试通过")
}

// TestSwarmConfig 测试连接群配置
func TestSwarmConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultSwarmConfig()
		assert.True(t, cfg.Server)
		assert.True(t, cfg.Client)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Validate_BadTopic", func(t *testing.T) {
		cfg := DefaultSwarmConfig()
		cfg.Topics = []string{"not-hex"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("Validate_TopicWithoutMode", func(t *testing.T) {
		cfg := DefaultSwarmConfig()
		cfg.Topics = []string{strings.Repeat("01", 32)}
		cfg.Server = false
		cfg.Client = false
		assert.Error(t, cfg.Validate())
	})

	t.Log("✅ SwarmConfig 测试通过")
}

// TestDHTConfig 测试 DHT 配置
func TestDHTConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultDHTConfig()
		assert.True(t, cfg.Ephemeral)
		assert.Equal(t, 20, cfg.BucketSize)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Validate_BadBootstrap", func(t *testing.T) {
		cfg := DefaultDHTConfig()
		cfg.Bootstrap = []string{"127.0.0.1"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("Validate_BadHost", func(t *testing.T) {
		cfg := DefaultDHTConfig()
		cfg.Host = "localhost"
		assert.Error(t, cfg.Validate())
	})

	t.Log("✅ DHTConfig 测试通过")
}

// TestIntrospectConfig 测试内省服务配置
func TestIntrospectConfig(t *testing.T) {
	cfg := DefaultIntrospectConfig()
	assert.Equal(t, "127.0.0.1:0", cfg.Addr())
	assert.NoError(t, cfg.Validate())

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	// 禁用时不校验
	cfg.Enable = false
	assert.NoError(t, cfg.Validate())

	t.Log("✅ IntrospectConfig 测试通过")
}

// TestFromJSON 测试 JSON 加载
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"dht": {"port": 49737, "bootstrap": ["127.0.0.1:49736"], "request_timeout": "500ms"},
		"introspect": {"port": 8080}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, 49737, cfg.DHT.Port)
	assert.Equal(t, []string{"127.0.0.1:49736"}, cfg.DHT.Bootstrap)
	assert.Equal(t, 500*time.Millisecond, cfg.DHT.RequestTimeout.Duration())
	assert.Equal(t, 8080, cfg.Introspect.Port)

	// 未出现的字段保留默认值
	assert.Equal(t, "127.0.0.1", cfg.Introspect.Host)
	assert.Equal(t, 20*time.Minute, cfg.DHT.RecordTTL.Duration())

	_, err = FromJSON([]byte(`{"dht": {"request_timeout": "soon"}}`))
	assert.Error(t, err)

	t.Log("✅ FromJSON 测试通过")
}

// TestFromFile 测试从文件加载
func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swarmscope.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"swarm": {"max_peers": 8}}`), 0600))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Swarm.MaxPeers)

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	t.Log("✅ FromFile 测试通过")
}

// TestFromYAML 测试 YAML 加载
func TestFromYAML(t *testing.T) {
	data := []byte(`
swarm:
  topics: ["` + strings.Repeat("ab", 32) + `"]
  announce_interval: 90s
dht:
  port: 49737
  ephemeral: false
introspect:
  enable_metrics: false
`)

	cfg, err := FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, []string{strings.Repeat("ab", 32)}, cfg.Swarm.Topics)
	assert.Equal(t, 90*time.Second, cfg.Swarm.AnnounceInterval.Duration())
	assert.Equal(t, 49737, cfg.DHT.Port)
	assert.False(t, cfg.DHT.Ephemeral)
	assert.False(t, cfg.Introspect.EnableMetrics)
	assert.True(t, cfg.Introspect.Enable)
	require.NoError(t, cfg.Validate())

	path := filepath.Join(t.TempDir(), "swarmscope.yaml")
	require.NoError(t, os.WriteFile(path, data, 0600))
	cfg, err = FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 49737, cfg.DHT.Port)

	_, err = FromYAML([]byte("dht:\n  request_timeout: soon\n"))
	assert.Error(t, err)

	t.Log("✅ FromYAML 测试通过")
}

// TestApplyEnv 测试环境变量覆盖
func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SWARMSCOPE_DHT_PORT":        "4000",
		"SWARMSCOPE_BOOTSTRAP":       "127.0.0.1:1, 127.0.0.1:2 ,",
		"SWARMSCOPE_INTROSPECT_PORT": "9090",
		"SWARMSCOPE_ENABLE_METRICS":  "off",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig()
	require.NoError(t, cfg.applyEnv(lookup))

	assert.Equal(t, 4000, cfg.DHT.Port)
	assert.Equal(t, []string{"127.0.0.1:1", "127.0.0.1:2"}, cfg.DHT.Bootstrap)
	assert.Equal(t, 9090, cfg.Introspect.Port)
	assert.False(t, cfg.Introspect.EnableMetrics)

	env["SWARMSCOPE_DHT_PORT"] = "abc"
	assert.Error(t, NewConfig().applyEnv(lookup))

	t.Log("✅ ApplyEnv 测试通过")
}

// TestDuration_Set 测试 Duration 作为 flag.Value
func TestDuration_Set(t *testing.T) {
	var d Duration
	require.NoError(t, d.Set("1m30s"))
	assert.Equal(t, 90*time.Second, d.Duration())
	assert.Equal(t, "1m30s", d.String())
	assert.Error(t, d.Set("later"))
}

// TestConfig_Clone 测试深拷贝
func TestConfig_Clone(t *testing.T) {
	cfg := NewConfig()
	cfg.DHT.Bootstrap = []string{"127.0.0.1:1"}

	clone := cfg.Clone()
	clone.DHT.Bootstrap[0] = "changed"

	assert.Equal(t, "127.0.0.1:1", cfg.DHT.Bootstrap[0])
}
