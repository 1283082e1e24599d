package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-swarmscope/config"
	"github.com/dep2p/go-swarmscope/internal/core/instrumented"
	"github.com/dep2p/go-swarmscope/tests/mocks"
)

func newApp(t *testing.T, cfg *config.Config) *prometheus.Registry {
	t.Helper()

	var reg *prometheus.Registry
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() *instrumented.Swarm {
			return instrumented.New(mocks.NewMockSwarm(make([]byte, 32)))
		}),
		Module,
		fx.Populate(&reg),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
	return reg
}

// TestModule 启用时提供 Registry
func TestModule(t *testing.T) {
	reg := newApp(t, config.NewConfig())
	require.NotNil(t, reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

// TestModule_Disabled 禁用时 Registry 为 nil
func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Introspect.EnableMetrics = false
	assert.Nil(t, newApp(t, cfg))
}
