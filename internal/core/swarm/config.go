package swarm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"
)

// Config Swarm 配置
type Config struct {
	// Host TCP 监听地址
	Host string

	// Port TCP 端口，0 表示优先复用 DHT 端口，失败时随机
	Port int

	// Topics 启动时加入的主题
	Topics [][]byte

	// Server 启动主题时在 DHT 上宣告自己
	Server bool

	// Client 启动主题时查找并连接其他节点
	Client bool

	// MaxPeers 最大连接数
	MaxPeers int

	// MaxParallelDials 单次发现的并发拨号数
	MaxParallelDials int

	// DialTimeout 拨号超时
	DialTimeout time.Duration

	// HandshakeTimeout Noise 握手超时
	HandshakeTimeout time.Duration

	// AnnounceInterval 重新宣告与查找的间隔
	AnnounceInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Host:             "0.0.0.0",
		Port:             0,
		Server:           true,
		Client:           true,
		MaxPeers:         64,
		MaxParallelDials: 3,
		DialTimeout:      10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		AnnounceInterval: 10 * time.Minute,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if net.ParseIP(c.Host) == nil {
		return errors.New("host must be an IP address")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("port out of range")
	}
	for _, t := range c.Topics {
		if len(t) != TopicSize {
			return fmt.Errorf("topic %s: %w", hex.EncodeToString(t), ErrInvalidTopic)
		}
	}
	if c.MaxPeers <= 0 {
		return errors.New("max peers must be positive")
	}
	if c.MaxParallelDials <= 0 {
		return errors.New("max parallel dials must be positive")
	}
	if c.DialTimeout <= 0 || c.HandshakeTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.AnnounceInterval <= 0 {
		return errors.New("announce interval must be positive")
	}
	return nil
}

// ConfigOption 配置选项函数
type ConfigOption func(*Config)

// WithHost 设置监听地址
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPort 设置 TCP 端口
func WithPort(port int) ConfigOption {
	return func(c *Config) {
		c.Port = port
	}
}

// WithTopics 设置启动时加入的主题
func WithTopics(topics ...[]byte) ConfigOption {
	return func(c *Config) {
		c.Topics = topics
	}
}

// WithMaxPeers 设置最大连接数
func WithMaxPeers(n int) ConfigOption {
	return func(c *Config) {
		c.MaxPeers = n
	}
}

// WithAnnounceInterval 设置重新宣告间隔
func WithAnnounceInterval(interval time.Duration) ConfigOption {
	return func(c *Config) {
		c.AnnounceInterval = interval
	}
}

// WithHandshakeTimeout 设置握手超时
func WithHandshakeTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.HandshakeTimeout = timeout
	}
}
