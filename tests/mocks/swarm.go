package mocks

import (
	"encoding/hex"
	"sync"

	"github.com/dep2p/go-swarmscope/pkg/interfaces"
	"github.com/dep2p/go-swarmscope/pkg/types"
)

// MockSwarm 模拟 Swarm 接口实现
//
// Connect/Disconnect 模拟连接建立与断开，并按真实 swarm 的顺序触发回调。
type MockSwarm struct {
	mu sync.Mutex

	// 基本属性
	PublicKeyValue []byte
	Conns          []interfaces.Connection
	Records        map[string]types.PeerRecord
	DHTValue       interfaces.DHT

	// SkipRecord 为 true 时 Connect 不写入注册表（用于构造不一致状态）
	SkipRecord bool

	// 可覆盖的方法
	SnapshotFunc func() interfaces.SwarmSnapshot

	notifiers []func(interfaces.Connection)

	// 调用记录
	SnapshotCalls int
}

var _ interfaces.Swarm = (*MockSwarm)(nil)

// NewMockSwarm 创建 MockSwarm
func NewMockSwarm(publicKey []byte) *MockSwarm {
	return &MockSwarm{
		PublicKeyValue: publicKey,
		Records:        make(map[string]types.PeerRecord),
		DHTValue:       NewMockDHT("127.0.0.1", 49737),
	}
}

// PublicKey 返回本地公钥
func (m *MockSwarm) PublicKey() []byte {
	return m.PublicKeyValue
}

// Connections 返回连接副本
func (m *MockSwarm) Connections() []interfaces.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interfaces.Connection, len(m.Conns))
	copy(out, m.Conns)
	return out
}

// Peers 返回注册表副本
func (m *MockSwarm) Peers() map[string]types.PeerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]types.PeerRecord, len(m.Records))
	for k, v := range m.Records {
		out[k] = v.Clone()
	}
	return out
}

// Snapshot 返回一致快照
func (m *MockSwarm) Snapshot() interfaces.SwarmSnapshot {
	m.mu.Lock()
	m.SnapshotCalls++
	fn := m.SnapshotFunc
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return interfaces.SwarmSnapshot{
		Connections: m.Connections(),
		Peers:       m.Peers(),
	}
}

// OnConnection 注册连接建立回调
func (m *MockSwarm) OnConnection(fn func(interfaces.Connection)) {
	m.mu.Lock()
	m.notifiers = append(m.notifiers, fn)
	m.mu.Unlock()
}

// DHT 返回路由表
func (m *MockSwarm) DHT() interfaces.DHT {
	return m.DHTValue
}

// SetRecord 写入注册表条目
func (m *MockSwarm) SetRecord(rec types.PeerRecord) {
	m.mu.Lock()
	m.Records[hex.EncodeToString(rec.PublicKey)] = rec
	m.mu.Unlock()
}

// Connect 模拟连接建立：写入连接集合与注册表，再通知回调
func (m *MockSwarm) Connect(conn interfaces.Connection) {
	m.mu.Lock()
	m.Conns = append(m.Conns, conn)
	k := hex.EncodeToString(conn.RemotePublicKey())
	if _, ok := m.Records[k]; !ok && !m.SkipRecord {
		m.Records[k] = types.PeerRecord{
			PublicKey: conn.RemotePublicKey(),
			Priority:  types.PriorityNormal,
		}
	}
	notifiers := make([]func(interfaces.Connection), len(m.notifiers))
	copy(notifiers, m.notifiers)
	m.mu.Unlock()

	for _, fn := range notifiers {
		fn(conn)
	}
}

// Disconnect 模拟连接断开：移出连接集合后关闭连接
func (m *MockSwarm) Disconnect(conn interfaces.Connection) {
	m.mu.Lock()
	for i, c := range m.Conns {
		if c == conn {
			m.Conns = append(m.Conns[:i], m.Conns[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	_ = conn.Close()
}
