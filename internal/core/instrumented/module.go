package instrumented

import (
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
)

// Module 统计包装 Fx 模块
//
// Invoke 保证在任何生命周期钩子运行之前完成订阅。
var Module = fx.Module("core_instrumented",
	fx.Provide(NewFromParams),
	fx.Invoke(func(*Swarm) {}),
)

// Params 依赖参数
type Params struct {
	fx.In

	Swarm pkgif.Swarm
}

// NewFromParams 从 Fx 参数创建
func NewFromParams(p Params) *Swarm {
	return New(p.Swarm)
}
