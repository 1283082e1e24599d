package swarm

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-swarmscope/config"
	"github.com/dep2p/go-swarmscope/internal/discovery/dht"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
)

// Module Swarm Fx 模块
//
// 依赖 discovery/dht 模块提供的 *dht.DHT，应排在它之后。
var Module = fx.Module("core_swarm",
	fx.Provide(
		NewFromParams,
	),
	fx.Invoke(registerLifecycle),
)

// Params Swarm 依赖参数
type Params struct {
	fx.In

	DHT        *dht.DHT
	UnifiedCfg *config.Config `optional:"true"`
}

// Result Swarm 导出结果
type Result struct {
	fx.Out

	Swarm          *Swarm
	SwarmInterface pkgif.Swarm
}

// ConfigFromUnified 从统一配置创建 Swarm 配置
//
// TCP 监听地址与 DHT 绑定地址一致，端口复用 DHT 端口。
func ConfigFromUnified(cfg *config.Config) (*Config, error) {
	c := DefaultConfig()
	if cfg == nil {
		return c, nil
	}

	c.Host = cfg.DHT.Host
	c.Server = cfg.Swarm.Server
	c.Client = cfg.Swarm.Client
	c.MaxPeers = cfg.Swarm.MaxPeers
	c.MaxParallelDials = cfg.Swarm.MaxParallelDials
	c.DialTimeout = cfg.Swarm.DialTimeout.Duration()
	c.HandshakeTimeout = cfg.Swarm.HandshakeTimeout.Duration()
	c.AnnounceInterval = cfg.Swarm.AnnounceInterval.Duration()

	for _, t := range cfg.Swarm.Topics {
		topic, err := hex.DecodeString(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, t)
		}
		c.Topics = append(c.Topics, topic)
	}
	return c, nil
}

// KeyPairFromConfig 按身份配置获取密钥对
//
// 优先级：SecretKey > KeyFile > 临时生成。
func KeyPairFromConfig(cfg config.IdentityConfig) (KeyPair, error) {
	switch {
	case cfg.SecretKey != "":
		return KeyPairFromHex(cfg.SecretKey)
	case cfg.KeyFile != "":
		return LoadOrGenerateKeyPair(cfg.KeyFile, cfg.AutoGenerate)
	default:
		return GenerateKeyPair()
	}
}

// NewFromParams 从 Fx 参数创建 Swarm
func NewFromParams(p Params) (Result, error) {
	cfg, err := ConfigFromUnified(p.UnifiedCfg)
	if err != nil {
		return Result{}, err
	}

	identity := config.DefaultIdentityConfig()
	if p.UnifiedCfg != nil {
		identity = p.UnifiedCfg.Identity
	}
	kp, err := KeyPairFromConfig(identity)
	if err != nil {
		return Result{}, fmt.Errorf("load identity: %w", err)
	}

	s, err := New(cfg, p.DHT, kp)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Swarm:          s,
		SwarmInterface: s,
	}, nil
}

// registerLifecycle 注册 Swarm 生命周期钩子
func registerLifecycle(lc fx.Lifecycle, s *Swarm) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Start(ctx); err != nil {
				log.Error("swarm 启动失败", "error", err)
				return err
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := s.Close(); err != nil {
				log.Error("swarm 停止失败", "error", err)
				return err
			}
			return nil
		},
	})
}
