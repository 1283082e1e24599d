package introspect

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-swarmscope/config"
	"github.com/dep2p/go-swarmscope/internal/core/instrumented"
)

// ConfigFromUnified 从统一配置创建服务配置
//
// 返回 false 表示服务未启用。
func ConfigFromUnified(cfg *config.Config) (Config, bool) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	ic := cfg.Introspect
	if !ic.Enable {
		return Config{}, false
	}
	return Config{
		Addr:         ic.Addr(),
		ReadTimeout:  ic.ReadTimeout.Duration(),
		WriteTimeout: ic.WriteTimeout.Duration(),
	}, true
}

// Params 模块输入
type Params struct {
	fx.In

	Swarm      *instrumented.Swarm
	Registry   *prometheus.Registry `optional:"true"`
	UnifiedCfg *config.Config       `optional:"true"`
}

// Result 模块输出
//
// 服务未启用时 Server 为 nil。
type Result struct {
	fx.Out

	Server *Server
}

// ProvideServer 提供自省服务
func ProvideServer(p Params) (Result, error) {
	cfg, enabled := ConfigFromUnified(p.UnifiedCfg)
	if !enabled {
		log.Debug("自省服务未启用")
		return Result{}, nil
	}

	// nil *Registry 不能直接赋给接口
	if p.Registry != nil {
		cfg.Gatherer = p.Registry
	}

	s, err := New(p.Swarm, cfg)
	if err != nil {
		return Result{}, err
	}
	return Result{Server: s}, nil
}

// Module 是 introspect 的 Fx 模块
var Module = fx.Module("introspect",
	fx.Provide(ProvideServer),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	if s == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
