package introspect

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-swarmscope/internal/core/instrumented"
	"github.com/dep2p/go-swarmscope/internal/core/metrics"
	"github.com/dep2p/go-swarmscope/internal/discovery/dht"
	"github.com/dep2p/go-swarmscope/pkg/types"
	"github.com/dep2p/go-swarmscope/tests/mocks"
)

func key(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

// fixture 三条连接，其中两条来自同一主机，第三条的远端在路由表中
func fixture(t *testing.T) (*mocks.MockSwarm, *instrumented.Swarm) {
	t.Helper()

	sw := mocks.NewMockSwarm(key(0))
	d := sw.DHTValue.(*mocks.MockDHT)
	s := instrumented.New(sw)

	sw.Connect(mocks.NewMockConnection(key(3), "10.0.0.3", 4003, 5001))
	sw.Connect(mocks.NewMockConnection(key(1), "10.0.0.1", 4001, 5001))
	sw.Connect(mocks.NewMockConnection(key(2), "10.0.0.1", 4002, 5001))

	id := dht.NodeID("10.0.0.3", 4003)
	d.AddNode(&mocks.MockDHTNode{IDValue: id[:], HostValue: "10.0.0.3", PortValue: 4003, AddedValue: 1})
	d.AddNode(&mocks.MockDHTNode{IDValue: key(0xaa), HostValue: "10.0.0.9", PortValue: 4009, AddedValue: 2})
	return sw, s
}

func newTestServer(t *testing.T, src Source, cfg Config) *Server {
	t.Helper()
	s, err := New(src, cfg)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// ============================================================================
// /swarm/peerinfo
// ============================================================================

// TestServer_PeerInfoList 返回按公钥排序的全部连接
func TestServer_PeerInfoList(t *testing.T) {
	_, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	rec := get(t, h, "/swarm/peerinfo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	infos := decode[[]types.PeerInfo](t, rec)
	require.Len(t, infos, 3)
	assert.Equal(t, hex.EncodeToString(key(1)), infos[0].PublicKey)
	assert.Equal(t, hex.EncodeToString(key(2)), infos[1].PublicKey)
	assert.Equal(t, hex.EncodeToString(key(3)), infos[2].PublicKey)
	assert.True(t, infos[2].OnDHT)
	assert.False(t, infos[0].OnDHT)

	t.Log("✅ peerinfo 列表有序")
}

// TestServer_PeerInfoFilter host 与 port 精确匹配并取交集
func TestServer_PeerInfoFilter(t *testing.T) {
	_, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"按主机", "?host=10.0.0.1", []string{hex.EncodeToString(key(1)), hex.EncodeToString(key(2))}},
		{"按端口", "?port=4003", []string{hex.EncodeToString(key(3))}},
		{"主机与端口", "?host=10.0.0.1&port=4002", []string{hex.EncodeToString(key(2))}},
		{"交集为空", "?host=10.0.0.1&port=4003", []string{}},
		{"端口不做数值解析", "?port=04003", []string{}},
		{"空值也是过滤条件", "?host=", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, "/swarm/peerinfo"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			infos := decode[[]types.PeerInfo](t, rec)
			got := make([]string, 0, len(infos))
			for _, info := range infos {
				got = append(got, info.PublicKey)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestServer_PeerInfoEmpty 无连接时返回空数组
func TestServer_PeerInfoEmpty(t *testing.T) {
	src := instrumented.New(mocks.NewMockSwarm(key(0)))
	h := newTestServer(t, src, Config{}).Handler()

	rec := get(t, h, "/swarm/peerinfo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = get(t, h, "/swarm/peerinfo?host=10.0.0.1")
	assert.JSONEq(t, "[]", rec.Body.String())
}

// TestServer_PeerInfoByKey 按公钥查询
func TestServer_PeerInfoByKey(t *testing.T) {
	_, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	rec := get(t, h, "/swarm/peerinfo/"+hex.EncodeToString(key(3)))
	require.Equal(t, http.StatusOK, rec.Code)

	info := decode[types.PeerInfo](t, rec)
	assert.Equal(t, "10.0.0.3", info.RemoteHost)
	assert.Equal(t, 4003, info.RemotePort)
	assert.Equal(t, 5001, info.OwnPort)
	assert.True(t, info.OnDHT)

	// 字段名与导出格式一致
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, k := range []string{"remoteHost", "remotePort", "ownPort", "publicKey", "banned", "priority", "client", "topics", "onDht"} {
		assert.Contains(t, raw, k)
	}

	t.Log("✅ 单个 peerinfo 正确")
}

// TestServer_PeerInfoNotFound 未知公钥返回 404 且无响应体
func TestServer_PeerInfoNotFound(t *testing.T) {
	_, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	rec := get(t, h, "/swarm/peerinfo/"+strings.Repeat("a", 64))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

// ============================================================================
// /swarm/dhtnode 与 /swarm/summary
// ============================================================================

// TestServer_DHTNodes 按路由表顺序返回投影
func TestServer_DHTNodes(t *testing.T) {
	_, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	rec := get(t, h, "/swarm/dhtnode")
	require.Equal(t, http.StatusOK, rec.Code)

	nodes := decode[[]types.DHTNodeInfo](t, rec)
	require.Len(t, nodes, 2)
	assert.Equal(t, "10.0.0.3", nodes[0].Host)
	assert.Equal(t, hex.EncodeToString(key(0xaa)), nodes[1].ID)
	assert.Equal(t, uint64(2), nodes[1].Added)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.ElementsMatch(t,
		[]string{"id", "host", "port", "added", "pinged", "seen", "downHints"},
		keys(raw[0]))
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// TestServer_Summary 聚合指标为扁平 JSON
func TestServer_Summary(t *testing.T) {
	sw, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	sw.Disconnect(sw.Conns[0])

	rec := get(t, h, "/swarm/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"nrSwarmPeers": 2,
		"nrSwarmHosts": 1,
		"nrDhtPeers": 2,
		"nrDhtHosts": 2,
		"connectionsOpened": 3,
		"connectionsClosed": 1
	}`, rec.Body.String())

	t.Log("✅ summary 正确")
}

// TestServer_InvariantViolation 不一致状态返回 500
func TestServer_InvariantViolation(t *testing.T) {
	sw := mocks.NewMockSwarm(key(0))
	sw.SkipRecord = true
	src := instrumented.New(sw)
	sw.Connect(mocks.NewMockConnection(key(1), "10.0.0.1", 4001, 5001))

	h := newTestServer(t, src, Config{}).Handler()

	for _, target := range []string{
		"/swarm/peerinfo",
		"/swarm/peerinfo/" + hex.EncodeToString(key(1)),
		"/swarm/summary",
	} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
	}

	// 路由表视图不依赖注册表
	assert.Equal(t, http.StatusOK, get(t, h, "/swarm/dhtnode").Code)
}

// ============================================================================
// 路由与中间件
// ============================================================================

// TestServer_MethodNotAllowed 只接受 GET
func TestServer_MethodNotAllowed(t *testing.T) {
	_, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/swarm/summary", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/swarm/unknown").Code)
}

// TestServer_RequestID 每个请求带唯一 ID
func TestServer_RequestID(t *testing.T) {
	_, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	id1 := get(t, h, "/swarm/summary").Header().Get(requestIDHeader)
	id2 := get(t, h, "/swarm/summary").Header().Get(requestIDHeader)
	assert.Len(t, id1, 36)
	assert.NotEqual(t, id1, id2)
}

// TestServer_Metrics 启用时挂载 /metrics
func TestServer_Metrics(t *testing.T) {
	_, src := fixture(t)

	reg, err := metrics.NewRegistry(src)
	require.NoError(t, err)

	h := newTestServer(t, src, Config{Gatherer: reg}).Handler()
	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swarmscope_nr_swarm_peers 3")
	assert.Contains(t, rec.Body.String(), "swarmscope_swarm_connections_opened_total 3")

	// 未配置时不挂载
	h = newTestServer(t, src, Config{}).Handler()
	assert.Equal(t, http.StatusNotFound, get(t, h, "/metrics").Code)
}

// TestServer_Health 健康检查
func TestServer_Health(t *testing.T) {
	_, src := fixture(t)
	h := newTestServer(t, src, Config{}).Handler()

	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

// ============================================================================
// 生命周期
// ============================================================================

// TestNew_NoSource 缺少数据源
func TestNew_NoSource(t *testing.T) {
	_, err := New(nil, Config{})
	assert.ErrorIs(t, err, ErrNoSource)
}

// TestServer_Lifecycle 启动后立即可访问，重复启动与停止无副作用
func TestServer_Lifecycle(t *testing.T) {
	_, src := fixture(t)
	s := newTestServer(t, src, Config{Addr: "127.0.0.1:0"})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.Running())

	addr := s.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr)

	resp, err := http.Get("http://" + addr + "/swarm/summary")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"nrSwarmPeers":3`)

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Running())

	_, err = net.Dial("tcp", addr)
	assert.Error(t, err)

	t.Log("✅ 生命周期正确")
}

// TestServer_BindFailure 端口被占用时启动失败
func TestServer_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, src := fixture(t)
	s := newTestServer(t, src, Config{Addr: ln.Addr().String()})

	err = s.Start(context.Background())
	require.ErrorIs(t, err, ErrBindFailure)

	var opErr *net.OpError
	assert.ErrorAs(t, err, &opErr)
	assert.False(t, s.Running())
	assert.NoError(t, s.Stop(context.Background()))
}
