package config

import (
	"encoding/hex"
	"errors"
)

// IdentityConfig 身份配置
//
// swarm 的 Noise 静态密钥对来源，优先级：
//   - SecretKey: 32 字节十六进制种子，确定性派生密钥对
//   - KeyFile: 从文件加载，文件不存在且 AutoGenerate 时生成并写入
//   - 都为空: 内存中生成临时密钥
type IdentityConfig struct {
	// SecretKey 十六进制种子
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`

	// KeyFile 密钥文件路径
	KeyFile string `json:"key_file" yaml:"key_file"`

	// AutoGenerate 当密钥文件不存在时是否自动生成
	AutoGenerate bool `json:"auto_generate" yaml:"auto_generate"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		KeyFile:      "",
		AutoGenerate: true,
	}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.SecretKey != "" {
		seed, err := hex.DecodeString(c.SecretKey)
		if err != nil {
			return errors.New("secret key must be hex encoded")
		}
		if len(seed) != 32 {
			return errors.New("secret key must be 32 bytes")
		}
	}
	return nil
}

// WithKeyFile 设置密钥文件路径
func (c IdentityConfig) WithKeyFile(path string) IdentityConfig {
	c.KeyFile = path
	return c
}

// WithSecretKey 设置十六进制种子
func (c IdentityConfig) WithSecretKey(seed string) IdentityConfig {
	c.SecretKey = seed
	return c
}
