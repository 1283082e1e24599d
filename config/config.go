// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 或 YAML 文件加载，支持 SWARMSCOPE_ 前缀的环境变量覆盖
//
// 优先级（从低到高）：默认值 < 配置文件 < 环境变量 < 命令行参数。
//
// 使用示例：
//
//	cfg, err := config.FromFile("swarmscope.json")
//	if err != nil { ... }
//	if err := cfg.ApplyEnv(); err != nil { ... }
//	cfg.Introspect.Port = 8080
package config

// Config 是 swarmscope 的完整配置结构
//
// 配置按照功能模块组织：
//   - Identity: swarm 密钥对
//   - Swarm: 连接与主题
//   - DHT: 路由表与引导节点
//   - Introspect: HTTP 内省服务
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity" yaml:"identity"`

	// Swarm 连接群配置
	Swarm SwarmConfig `json:"swarm" yaml:"swarm"`

	// DHT DHT 配置
	DHT DHTConfig `json:"dht" yaml:"dht"`

	// Introspect 内省服务配置
	Introspect IntrospectConfig `json:"introspect" yaml:"introspect"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:   DefaultIdentityConfig(),
		Swarm:      DefaultSwarmConfig(),
		DHT:        DefaultDHTConfig(),
		Introspect: DefaultIntrospectConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	if err := c.Swarm.Validate(); err != nil {
		return err
	}
	if err := c.DHT.Validate(); err != nil {
		return err
	}
	if err := c.Introspect.Validate(); err != nil {
		return err
	}
	return nil
}

// Clone 返回深拷贝
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Swarm.Topics = append([]string(nil), c.Swarm.Topics...)
	out.DHT.Bootstrap = append([]string(nil), c.DHT.Bootstrap...)
	return &out
}
