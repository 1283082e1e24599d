package swarmscope

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dep2p/go-swarmscope/config"
	"github.com/dep2p/go-swarmscope/internal/discovery/dht"
	"github.com/dep2p/go-swarmscope/pkg/types"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.DHT.Host = "127.0.0.1"
	return cfg
}

func summary(t *testing.T, n *Node) types.MetricsSnapshot {
	t.Helper()

	resp, err := http.Get("http://" + n.IntrospectAddr() + "/swarm/summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m types.MetricsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

// TestNode_Lifecycle 启动、重复启动与关闭
func TestNode_Lifecycle(t *testing.T) {
	ctx := context.Background()

	n, err := Start(ctx, testConfig())
	require.NoError(t, err)
	assert.True(t, n.Started())
	assert.NotEmpty(t, n.IntrospectAddr())
	assert.Equal(t, n.DHT().Port(), n.Swarm().Port())
	assert.Equal(t, n.Swarm().PublicKey(), n.Instrumented().PublicKey())

	m := summary(t, n)
	assert.Zero(t, m.NrSwarmPeers)
	assert.Zero(t, m.ConnectionsOpened)

	assert.ErrorIs(t, n.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
	assert.False(t, n.Started())
	assert.False(t, n.Introspect().Running())
	assert.ErrorIs(t, n.Start(ctx), ErrNodeClosed)

	t.Log("✅ 节点生命周期正确")
}

// TestNode_IntrospectDisabled 关闭自省服务时计数仍然工作
func TestNode_IntrospectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Introspect.Enable = false

	a, err := Start(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	b, err := Start(context.Background(), testConfig())
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, a.Introspect())
	assert.Empty(t, a.IntrospectAddr())

	_, err = a.Swarm().Dial(context.Background(), "127.0.0.1", b.Swarm().Port())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.Instrumented().ConnectionsOpened())
}

// TestNode_TopicDiscovery 两个节点通过同一主题互相发现
func TestNode_TopicDiscovery(t *testing.T) {
	ctx := context.Background()

	tn, err := dht.NewTestnet(ctx, 3)
	require.NoError(t, err)
	defer tn.Close()

	topic := hex.EncodeToString(bytes.Repeat([]byte{0x5c}, 32))
	newNode := func() *Node {
		cfg := testConfig()
		cfg.DHT.Bootstrap = tn.BootstrapAddrs()
		cfg.Swarm.Topics = []string{topic}

		n, err := Start(ctx, cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = n.Close() })
		return n
	}

	a := newNode()
	b := newNode()

	require.Eventually(t, func() bool {
		return summary(t, a).NrSwarmPeers == 1 && summary(t, b).NrSwarmPeers == 1
	}, 15*time.Second, 50*time.Millisecond)

	// b 启动时在主题下找到 a
	resp, err := http.Get("http://" + b.IntrospectAddr() + "/swarm/peerinfo/" + hex.EncodeToString(a.Swarm().PublicKey()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info types.PeerInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, []string{topic}, info.Topics)

	t.Log("✅ 主题发现正确")
}

// TestNew_InvalidConfig 配置非法时构造失败
func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Swarm.Topics = []string{"not-hex"}

	_, err := New(cfg)
	assert.Error(t, err)
}

// TestNew_Options 选项
func TestNew_Options(t *testing.T) {
	_, err := New(testConfig(), WithFxLogger(nil))
	assert.Error(t, err)

	var reg *prometheus.Registry
	n, err := New(testConfig(),
		WithFxLogger(zap.NewNop()),
		WithFxOptions(fx.Populate(&reg)),
	)
	require.NoError(t, err)
	require.NotNil(t, reg)
	require.NoError(t, n.Close())
}

// TestVersionInfo 版本信息
func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}
