package instrumented

import (
	"encoding/hex"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/dep2p/go-swarmscope/internal/discovery/dht"
	"github.com/dep2p/go-swarmscope/internal/util/logger"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
	"github.com/dep2p/go-swarmscope/pkg/types"
)

var log = logger.Logger("core/instrumented")

// NodeIDFunc 由 (host, port) 推算 DHT 节点 ID
type NodeIDFunc func(host string, port int) []byte

// defaultNodeID 与路由表使用同一 ID 空间
func defaultNodeID(host string, port int) []byte {
	id := dht.NodeID(host, port)
	return id[:]
}

// Option 构造选项
type Option func(*Swarm)

// WithNodeID 替换节点 ID 推算函数
func WithNodeID(fn NodeIDFunc) Option {
	return func(s *Swarm) {
		s.nodeID = fn
	}
}

// Swarm 带统计的 swarm 包装
type Swarm struct {
	swarm  pkgif.Swarm
	nodeID NodeIDFunc

	opened atomic.Uint64
	closed atomic.Uint64
}

// New 包装 swarm 并立即订阅连接通知
//
// 计数从构造开始，与内省服务是否启动无关。
func New(sw pkgif.Swarm, opts ...Option) *Swarm {
	s := &Swarm{
		swarm:  sw,
		nodeID: defaultNodeID,
	}
	for _, opt := range opts {
		opt(s)
	}

	sw.OnConnection(s.onConnection)
	return s
}

// onConnection 连接建立回调
func (s *Swarm) onConnection(conn pkgif.Connection) {
	s.opened.Add(1)
	conn.OnClose(func() {
		s.closed.Add(1)
	})
}

// ============================================================================
// 计数与身份
// ============================================================================

// ConnectionsOpened 累计打开的连接数
func (s *Swarm) ConnectionsOpened() uint64 {
	return s.opened.Load()
}

// ConnectionsClosed 累计关闭的连接数
func (s *Swarm) ConnectionsClosed() uint64 {
	return s.closed.Load()
}

// PublicKey 返回本地公钥
func (s *Swarm) PublicKey() []byte {
	return s.swarm.PublicKey()
}

// OwnHost 返回本地 DHT 地址
func (s *Swarm) OwnHost() string {
	return s.swarm.DHT().Host()
}

// OwnPort 返回本地 DHT 端口
func (s *Swarm) OwnPort() int {
	return s.swarm.DHT().Port()
}

// ============================================================================
// 直通视图
// ============================================================================

// Peers 返回节点注册表
func (s *Swarm) Peers() map[string]types.PeerRecord {
	return s.swarm.Peers()
}

// Connections 返回当前打开的连接
func (s *Swarm) Connections() []pkgif.Connection {
	return s.swarm.Connections()
}

// ============================================================================
// 计算视图
// ============================================================================

// DHTNodeList 按路由表顺序返回节点投影
func (s *Swarm) DHTNodeList() []types.DHTNodeInfo {
	nodes := s.swarm.DHT().ToArray()
	out := make([]types.DHTNodeInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, projectNode(n))
	}
	return out
}

// DHTNodes 返回 十六进制节点 ID -> 节点投影
func (s *Swarm) DHTNodes() map[string]types.DHTNodeInfo {
	list := s.DHTNodeList()
	out := make(map[string]types.DHTNodeInfo, len(list))
	for _, n := range list {
		out[n.ID] = n
	}
	return out
}

// projectNode 逐字段复制，只输出白名单字段
func projectNode(n pkgif.DHTNode) types.DHTNodeInfo {
	return types.DHTNodeInfo{
		ID:        hex.EncodeToString(n.ID()),
		Host:      n.Host(),
		Port:      n.Port(),
		Added:     n.Added(),
		Pinged:    n.Pinged(),
		Seen:      n.Seen(),
		DownHints: n.DownHints(),
	}
}

// PeerInfos 返回 十六进制公钥 -> PeerInfo
func (s *Swarm) PeerInfos() (map[string]types.PeerInfo, error) {
	return s.peerInfos(s.DHTNodes())
}

// PeerInfoList 按公钥排序返回 PeerInfo
func (s *Swarm) PeerInfoList() ([]types.PeerInfo, error) {
	infos, err := s.PeerInfos()
	if err != nil {
		return nil, err
	}
	return sortedInfos(infos), nil
}

// peerInfos 用给定的 DHT 节点集合关联连接与注册表
func (s *Swarm) peerInfos(dhtNodes map[string]types.DHTNodeInfo) (map[string]types.PeerInfo, error) {
	snap := s.swarm.Snapshot()

	out := make(map[string]types.PeerInfo, len(snap.Connections))
	for _, conn := range snap.Connections {
		key := hex.EncodeToString(conn.RemotePublicKey())
		rec, ok := snap.Peers[key]
		if !ok {
			log.Error("连接缺少注册表条目",
				"peer", key,
				"remote", fmt.Sprintf("%s:%d", conn.RemoteHost(), conn.RemotePort()))
			return nil, fmt.Errorf("%w: %s", ErrInvariantViolation, key)
		}

		nodeID := hex.EncodeToString(s.nodeID(conn.RemoteHost(), conn.RemotePort()))
		_, onDHT := dhtNodes[nodeID]

		out[key] = types.PeerInfo{
			RemoteHost: conn.RemoteHost(),
			RemotePort: conn.RemotePort(),
			OwnPort:    conn.LocalPort(),
			PublicKey:  key,
			Banned:     rec.Banned,
			Priority:   rec.Priority,
			Client:     rec.Client,
			Topics:     rec.HexTopics(),
			OnDHT:      onDHT,
		}
	}
	return out, nil
}

// Metrics 从一次 PeerInfos 与一次 DHTNodes 计算聚合指标
func (s *Swarm) Metrics() (types.MetricsSnapshot, error) {
	dhtNodes := s.DHTNodes()
	infos, err := s.peerInfos(dhtNodes)
	if err != nil {
		return types.MetricsSnapshot{}, err
	}

	swarmHosts := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		swarmHosts[info.RemoteHost] = struct{}{}
	}
	dhtHosts := make(map[string]struct{}, len(dhtNodes))
	for _, n := range dhtNodes {
		dhtHosts[n.Host] = struct{}{}
	}

	// 先读 closed 再读 opened，保证快照中 opened >= closed
	closed := s.closed.Load()
	opened := s.opened.Load()

	return types.MetricsSnapshot{
		NrSwarmPeers:      len(infos),
		NrSwarmHosts:      len(swarmHosts),
		NrDHTPeers:        len(dhtNodes),
		NrDHTHosts:        len(dhtHosts),
		ConnectionsOpened: opened,
		ConnectionsClosed: closed,
	}, nil
}

// sortedInfos 按公钥排序
func sortedInfos(infos map[string]types.PeerInfo) []types.PeerInfo {
	out := make([]types.PeerInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublicKey < out[j].PublicKey })
	return out
}
