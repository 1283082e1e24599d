package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// 环境变量（均使用 SWARMSCOPE_ 前缀）
const (
	EnvPrefix = "SWARMSCOPE_"

	EnvSecretKey      = "SECRET_KEY"
	EnvKeyFile        = "KEY_FILE"
	EnvDHTPort        = "DHT_PORT"
	EnvBootstrap      = "BOOTSTRAP"
	EnvTopics         = "TOPICS"
	EnvIntrospectHost = "INTROSPECT_HOST"
	EnvIntrospectPort = "INTROSPECT_PORT"
	EnvEnableMetrics  = "ENABLE_METRICS"
)

// FromJSON 从 JSON 数据创建配置
//
// 缺省字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FromYAML 从 YAML 数据创建配置
func FromYAML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FromFile 从文件加载配置，按扩展名区分 YAML 与 JSON
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return FromJSON(data)
	}
}

// ApplyEnv 应用环境变量覆盖
//
// 环境变量优先级高于配置文件，但低于命令行参数。
//   - SWARMSCOPE_SECRET_KEY: 十六进制种子
//   - SWARMSCOPE_KEY_FILE: 密钥文件
//   - SWARMSCOPE_DHT_PORT: DHT 端口
//   - SWARMSCOPE_BOOTSTRAP: 引导节点（逗号分隔）
//   - SWARMSCOPE_TOPICS: 主题（逗号分隔）
//   - SWARMSCOPE_INTROSPECT_HOST / SWARMSCOPE_INTROSPECT_PORT: 内省服务地址
//   - SWARMSCOPE_ENABLE_METRICS: 是否暴露 /metrics
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvSecretKey); ok {
		c.Identity.SecretKey = v
	}
	if v, ok := get(EnvKeyFile); ok {
		c.Identity.KeyFile = v
	}
	if v, ok := get(EnvDHTPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, EnvDHTPort, err)
		}
		c.DHT.Port = port
	}
	if v, ok := get(EnvBootstrap); ok {
		c.DHT.Bootstrap = SplitAndTrim(v, ",")
	}
	if v, ok := get(EnvTopics); ok {
		c.Swarm.Topics = SplitAndTrim(v, ",")
	}
	if v, ok := get(EnvIntrospectHost); ok {
		c.Introspect.Host = v
	}
	if v, ok := get(EnvIntrospectPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, EnvIntrospectPort, err)
		}
		c.Introspect.Port = port
	}
	if v, ok := get(EnvEnableMetrics); ok {
		c.Introspect.EnableMetrics = ParseBool(v)
	}
	return nil
}

// ParseBool 解析布尔值字符串
func ParseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// SplitAndTrim 分割字符串并去除空白
func SplitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
