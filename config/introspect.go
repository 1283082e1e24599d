package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// IntrospectConfig 内省服务配置
type IntrospectConfig struct {
	// Enable 启用内省 HTTP 服务
	Enable bool `json:"enable" yaml:"enable"`

	// Host 监听地址
	Host string `json:"host" yaml:"host"`

	// Port 监听端口，0 表示随机端口
	Port int `json:"port" yaml:"port"`

	// EnableMetrics 暴露 /metrics（Prometheus）
	EnableMetrics bool `json:"enable_metrics" yaml:"enable_metrics"`

	// ReadTimeout 读超时
	ReadTimeout Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout 写超时
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout"`
}

// DefaultIntrospectConfig 返回默认内省服务配置
func DefaultIntrospectConfig() IntrospectConfig {
	return IntrospectConfig{
		Enable:        true,
		Host:          "127.0.0.1",
		Port:          0,
		EnableMetrics: true,
		ReadTimeout:   Duration(10 * time.Second),
		WriteTimeout:  Duration(10 * time.Second),
	}
}

// Addr 返回 host:port
func (c IntrospectConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate 验证内省服务配置
func (c IntrospectConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.Host == "" {
		return errors.New("introspect host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("introspect port %d out of range", c.Port)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.New("introspect timeouts must be positive")
	}
	return nil
}
