package instrumented

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
	"github.com/dep2p/go-swarmscope/tests/mocks"
)

// TestModule 模块在应用启动前完成订阅
func TestModule(t *testing.T) {
	sw := mocks.NewMockSwarm(key(0))

	var s *Swarm
	app := fxtest.New(t,
		fx.Provide(func() pkgif.Swarm { return sw }),
		Module,
		fx.Populate(&s),
	)

	// 构造阶段就已订阅，启动前的连接也会计数
	sw.Connect(mocks.NewMockConnection(key(1), "10.0.0.1", 4001, 5001))
	assert.Equal(t, uint64(1), s.ConnectionsOpened())

	app.RequireStart()
	app.RequireStop()

	// 与生命周期无关，停止后继续计数
	sw.Connect(mocks.NewMockConnection(key(2), "10.0.0.2", 4002, 5001))
	assert.Equal(t, uint64(2), s.ConnectionsOpened())
}
