package dht

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-swarmscope/config"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
)

// bootstrapTimeout 启动时引导的超时
const bootstrapTimeout = 30 * time.Second

// Module DHT Fx 模块
var Module = fx.Module("discovery_dht",
	fx.Provide(
		NewFromParams,
	),
	fx.Invoke(registerDHTLifecycle),
)

// Params DHT 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result DHT 导出结果
type Result struct {
	fx.Out

	DHT          *DHT
	DHTInterface pkgif.DHT
}

// ConfigFromUnified 从统一配置创建 DHT 配置
func ConfigFromUnified(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}

	c.Host = cfg.DHT.Host
	c.Port = cfg.DHT.Port
	c.Bootstrap = append([]string(nil), cfg.DHT.Bootstrap...)
	c.Ephemeral = cfg.DHT.Ephemeral
	c.BucketSize = cfg.DHT.BucketSize
	c.RefreshInterval = cfg.DHT.RefreshInterval.Duration()
	c.RequestTimeout = cfg.DHT.RequestTimeout.Duration()
	c.MaxDownHints = cfg.DHT.MaxDownHints
	c.RecordTTL = cfg.DHT.RecordTTL.Duration()
	c.MaxRecords = cfg.DHT.MaxRecords
	return c
}

// NewFromParams 从 Fx 参数创建 DHT
func NewFromParams(p Params) (Result, error) {
	d, err := New(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Result{}, err
	}
	return Result{
		DHT:          d,
		DHTInterface: d,
	}, nil
}

// registerDHTLifecycle 注册 DHT 生命周期钩子
//
// 引导在 OnStart 中同步完成，后续模块（swarm 加入主题）依赖已填充的路由表。
// 引导失败只记录日志，节点仍然可以作为第一个节点运行。
func registerDHTLifecycle(lc fx.Lifecycle, d *DHT) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := d.Start(ctx); err != nil {
				log.Error("DHT 启动失败", "error", err)
				return err
			}

			bctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
			defer cancel()
			if err := d.Bootstrap(bctx); err != nil {
				log.Warn("DHT 引导失败", "error", err)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := d.Close(); err != nil {
				log.Error("DHT 停止失败", "error", err)
				return err
			}
			return nil
		},
	})
}
