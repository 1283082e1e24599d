package swarmscope

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/dep2p/go-swarmscope/config"

	"github.com/dep2p/go-swarmscope/internal/core/instrumented"
	"github.com/dep2p/go-swarmscope/internal/core/introspect"
	"github.com/dep2p/go-swarmscope/internal/core/metrics"
	"github.com/dep2p/go-swarmscope/internal/core/swarm"
	"github.com/dep2p/go-swarmscope/internal/discovery/dht"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. DHT → Swarm
//  2. Instrumented（在任何 OnStart 之前订阅连接通知）
//  3. Metrics → Introspect
func buildFxApp(cfg *config.Config, o *options, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg),

		// ════════════════════════════════════════════════════════════════════
		// 2. 网络层
		// ════════════════════════════════════════════════════════════════════
		dht.Module,
		swarm.Module,

		// ════════════════════════════════════════════════════════════════════
		// 3. 统计与自省
		// ════════════════════════════════════════════════════════════════════
		instrumented.Module,
		metrics.Module,
		introspect.Module,
	}

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectNodeComponents(node)),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: o.fxLogger}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	DHT          *dht.DHT
	Swarm        *swarm.Swarm
	Instrumented *instrumented.Swarm
	Introspect   *introspect.Server `optional:"true"`
}

// injectNodeComponents 将 Fx 构造的组件注入 Node
func injectNodeComponents(node *Node) func(nodeInjectParams) {
	return func(p nodeInjectParams) {
		node.dht = p.DHT
		node.swarm = p.Swarm
		node.instrumented = p.Instrumented
		node.introspect = p.Introspect
	}
}
