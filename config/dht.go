package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DHTConfig DHT 配置
type DHTConfig struct {
	// Host UDP 绑定地址
	Host string `json:"host" yaml:"host"`

	// Port UDP 端口，0 表示随机端口
	// swarm 的 TCP 监听会尽量使用同一个端口号
	Port int `json:"port" yaml:"port"`

	// Bootstrap 引导节点（host:port）
	Bootstrap []string `json:"bootstrap" yaml:"bootstrap"`

	// Ephemeral 临时节点不会进入他人的路由表
	Ephemeral bool `json:"ephemeral" yaml:"ephemeral"`

	// BucketSize K-桶大小
	BucketSize int `json:"bucket_size" yaml:"bucket_size"`

	// RefreshInterval tick 间隔
	RefreshInterval Duration `json:"refresh_interval" yaml:"refresh_interval"`

	// RequestTimeout UDP 请求超时
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`

	// MaxDownHints 连续失败多少次后移出路由表
	MaxDownHints int `json:"max_down_hints" yaml:"max_down_hints"`

	// RecordTTL 宣告记录 TTL
	RecordTTL Duration `json:"record_ttl" yaml:"record_ttl"`

	// MaxRecords 宣告记录缓存上限
	MaxRecords int `json:"max_records" yaml:"max_records"`
}

// DefaultDHTConfig 返回默认 DHT 配置
func DefaultDHTConfig() DHTConfig {
	return DHTConfig{
		Host:            "0.0.0.0",
		Port:            0,
		Bootstrap:       nil,
		Ephemeral:       true,
		BucketSize:      20,
		RefreshInterval: Duration(5 * time.Second),
		RequestTimeout:  Duration(2 * time.Second),
		MaxDownHints:    3,
		RecordTTL:       Duration(20 * time.Minute),
		MaxRecords:      65536,
	}
}

// Validate 验证 DHT 配置
func (c DHTConfig) Validate() error {
	if net.ParseIP(c.Host) == nil {
		return fmt.Errorf("invalid dht host %q", c.Host)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("dht port out of range")
	}
	for _, addr := range c.Bootstrap {
		_, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("invalid bootstrap address %q: %w", addr, err)
		}
		if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid bootstrap port in %q", addr)
		}
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
	return nil
}
