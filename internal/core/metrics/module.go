package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-swarmscope/config"
	"github.com/dep2p/go-swarmscope/internal/core/instrumented"
)

// Config 指标配置
type Config struct {
	// Enabled 是否提供 Prometheus 指标
	Enabled bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled: true,
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled: cfg.Introspect.Enable && cfg.Introspect.EnableMetrics,
	}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Swarm      *instrumented.Swarm
	UnifiedCfg *config.Config `optional:"true"`
}

// Result Metrics 导出结果
//
// 禁用时 Registry 为 nil，内省服务不挂载 /metrics。
type Result struct {
	fx.Out

	Registry *prometheus.Registry
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建 Registry
func NewFromParams(p Params) (Result, error) {
	if !ConfigFromUnified(p.UnifiedCfg).Enabled {
		return Result{}, nil
	}
	reg, err := NewRegistry(p.Swarm)
	if err != nil {
		return Result{}, err
	}
	return Result{Registry: reg}, nil
}
