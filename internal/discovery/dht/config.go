package dht

import (
	"errors"
	"net"
	"time"

	"github.com/benbjohnson/clock"
)

// Config DHT 配置
type Config struct {
	// Host 绑定的 IP 地址
	Host string

	// Port UDP 端口，0 表示随机端口
	Port int

	// Bootstrap 引导节点列表（host:port）
	Bootstrap []string

	// Ephemeral 临时节点不在消息中携带自己的 ID，不会进入他人的路由表
	Ephemeral bool

	// BucketSize K-桶大小
	BucketSize int

	// RefreshInterval 每个 tick 的间隔，每个 tick ping 一个最旧的节点
	RefreshInterval time.Duration

	// RequestTimeout 单个 UDP 请求的超时
	RequestTimeout time.Duration

	// MaxDownHints 连续 ping 失败多少次后移出路由表
	MaxDownHints int

	// RecordTTL 宣告记录存活时间
	RecordTTL time.Duration

	// MaxRecords 宣告记录缓存上限
	MaxRecords int

	// Clock 时钟（测试时注入 clock.NewMock()）
	Clock clock.Clock
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            0,
		Ephemeral:       true,
		BucketSize:      BucketSize,
		RefreshInterval: 5 * time.Second,
		RequestTimeout:  2 * time.Second,
		MaxDownHints:    3,
		RecordTTL:       20 * time.Minute,
		MaxRecords:      65536,
		Clock:           clock.New(),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	ip := net.ParseIP(c.Host)
	if ip == nil {
		return errors.New("host must be an IP address")
	}

	// 持久节点的 ID 由地址派生，必须绑定在具体地址上
	if !c.Ephemeral && ip.IsUnspecified() {
		return errors.New("persistent node needs a concrete host")
	}

	if c.Port < 0 || c.Port > 65535 {
		return errors.New("port out of range")
	}

	if c.BucketSize <= 0 {
		return errors.New("bucket size must be positive")
	}

	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}

	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}

	if c.MaxDownHints <= 0 {
		return errors.New("max down hints must be positive")
	}

	if c.RecordTTL <= 0 {
		return errors.New("record TTL must be positive")
	}

	if c.MaxRecords <= 0 {
		return errors.New("max records must be positive")
	}

	for _, addr := range c.Bootstrap {
		if _, _, err := splitHostPort(addr); err != nil {
			return err
		}
	}

	return nil
}

// ConfigOption 配置选项函数
type ConfigOption func(*Config)

// WithHost 设置绑定地址
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPort 设置 UDP 端口
func WithPort(port int) ConfigOption {
	return func(c *Config) {
		c.Port = port
	}
}

// WithBootstrap 设置引导节点
func WithBootstrap(addrs ...string) ConfigOption {
	return func(c *Config) {
		c.Bootstrap = addrs
	}
}

// WithEphemeral 设置是否为临时节点
func WithEphemeral(ephemeral bool) ConfigOption {
	return func(c *Config) {
		c.Ephemeral = ephemeral
	}
}

// WithRefreshInterval 设置 tick 间隔
func WithRefreshInterval(interval time.Duration) ConfigOption {
	return func(c *Config) {
		c.RefreshInterval = interval
	}
}

// WithRequestTimeout 设置请求超时
func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithRecordTTL 设置宣告记录 TTL
func WithRecordTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) {
		c.RecordTTL = ttl
	}
}

// WithClock 设置时钟
func WithClock(clk clock.Clock) ConfigOption {
	return func(c *Config) {
		c.Clock = clk
	}
}
