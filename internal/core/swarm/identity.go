package swarm

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flynn/noise"
	"golang.org/x/crypto/curve25519"
)

// SeedSize 种子长度
const SeedSize = 32

// KeyPair Noise 静态密钥对（Curve25519）
//
// Public 即节点在 swarm 中的公钥，也是 DHT 宣告记录中的公钥。
type KeyPair struct {
	Public  []byte
	Private []byte
}

// GenerateKeyPair 生成随机密钥对
func GenerateKeyPair() (KeyPair, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return KeyPair{}, fmt.Errorf("read random seed: %w", err)
	}
	return KeyPairFromSeed(seed)
}

// KeyPairFromSeed 从 32 字节种子确定性派生密钥对
func KeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != SeedSize {
		return KeyPair{}, fmt.Errorf("%w: seed must be %d bytes", ErrInvalidKey, SeedSize)
	}

	// SHA-512 后取前 32 字节并 clamp（RFC 7748）
	h := sha512.Sum512(seed)
	priv := make([]byte, curve25519.ScalarSize)
	copy(priv, h[:32])
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// KeyPairFromHex 从十六进制种子派生密钥对
func KeyPairFromHex(s string) (KeyPair, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return KeyPairFromSeed(seed)
}

// LoadOrGenerateKeyPair 从文件加载种子，文件不存在且允许时生成并写入
//
// 文件内容为十六进制种子，权限 0600。
func LoadOrGenerateKeyPair(path string, autoGenerate bool) (KeyPair, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return KeyPairFromHex(string(data))
	}
	if !errors.Is(err, os.ErrNotExist) || !autoGenerate {
		return KeyPair{}, fmt.Errorf("read key file: %w", err)
	}

	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return KeyPair{}, fmt.Errorf("read random seed: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return KeyPair{}, fmt.Errorf("create key dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)), 0600); err != nil {
		return KeyPair{}, fmt.Errorf("write key file: %w", err)
	}

	log.Info("已生成新的密钥文件", "path", path)
	return KeyPairFromSeed(seed)
}

// dhKey 转换为 noise 静态密钥
func (k KeyPair) dhKey() noise.DHKey {
	return noise.DHKey{Private: k.Private, Public: k.Public}
}

// String 返回十六进制公钥
func (k KeyPair) String() string {
	return hex.EncodeToString(k.Public)
}
