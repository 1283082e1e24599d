package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// SwarmConfig 连接群配置
type SwarmConfig struct {
	// Topics 启动时加入的主题（32 字节十六进制 discovery key）
	Topics []string `json:"topics" yaml:"topics"`

	// Server 在主题下宣告自己
	Server bool `json:"server" yaml:"server"`

	// Client 在主题下查找并连接其他节点
	Client bool `json:"client" yaml:"client"`

	// MaxPeers 最大连接数
	MaxPeers int `json:"max_peers" yaml:"max_peers"`

	// MaxParallelDials 并发拨号数
	MaxParallelDials int `json:"max_parallel_dials" yaml:"max_parallel_dials"`

	// DialTimeout 拨号超时
	DialTimeout Duration `json:"dial_timeout" yaml:"dial_timeout"`

	// HandshakeTimeout Noise 握手超时
	HandshakeTimeout Duration `json:"handshake_timeout" yaml:"handshake_timeout"`

	// AnnounceInterval 重新宣告间隔
	AnnounceInterval Duration `json:"announce_interval" yaml:"announce_interval"`
}

// DefaultSwarmConfig 返回默认连接群配置
func DefaultSwarmConfig() SwarmConfig {
	return SwarmConfig{
		Topics:           nil,
		Server:           true,
		Client:           true,
		MaxPeers:         64,
		MaxParallelDials: 3,
		DialTimeout:      Duration(10 * time.Second),
		HandshakeTimeout: Duration(10 * time.Second),
		AnnounceInterval: Duration(10 * time.Minute),
	}
}

// Validate 验证连接群配置
func (c SwarmConfig) Validate() error {
	for _, t := range c.Topics {
		b, err := hex.DecodeString(t)
		if err != nil || len(b) != 32 {
			return fmt.Errorf("invalid topic %q: must be 32 bytes hex", t)
		}
	}
	if len(c.Topics) > 0 && !c.Server && !c.Client {
		return errors.New("topics need server or client mode")
	}
	if c.MaxPeers <= 0 {
		return errors.New("max peers must be positive")
	}
	if c.MaxParallelDials <= 0 {
		return errors.New("max parallel dials must be positive")
	}
	if c.DialTimeout <= 0 {
		return errors.New("dial timeout must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake timeout must be positive")
	}
	if c.AnnounceInterval <= 0 {
		return errors.New("announce interval must be positive")
	}
	return nil
}
