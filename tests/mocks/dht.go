package mocks

import (
	"sync"

	"github.com/dep2p/go-swarmscope/pkg/interfaces"
)

// MockDHTNode 模拟路由表节点
type MockDHTNode struct {
	IDValue        []byte
	HostValue      string
	PortValue      int
	AddedValue     uint64
	PingedValue    uint64
	SeenValue      uint64
	DownHintsValue int
}

var _ interfaces.DHTNode = (*MockDHTNode)(nil)

func (n *MockDHTNode) ID() []byte     { return n.IDValue }
func (n *MockDHTNode) Host() string   { return n.HostValue }
func (n *MockDHTNode) Port() int      { return n.PortValue }
func (n *MockDHTNode) Added() uint64  { return n.AddedValue }
func (n *MockDHTNode) Pinged() uint64 { return n.PingedValue }
func (n *MockDHTNode) Seen() uint64   { return n.SeenValue }
func (n *MockDHTNode) DownHints() int { return n.DownHintsValue }

// MockDHT 模拟 DHT 接口实现
type MockDHT struct {
	mu sync.Mutex

	HostValue         string
	PortValue         int
	BootstrappedValue bool
	Nodes             []interfaces.DHTNode

	// 可覆盖的方法
	ToArrayFunc func() []interfaces.DHTNode

	// 调用记录
	ToArrayCalls int
}

var _ interfaces.DHT = (*MockDHT)(nil)

// NewMockDHT 创建 MockDHT
func NewMockDHT(host string, port int) *MockDHT {
	return &MockDHT{
		HostValue:         host,
		PortValue:         port,
		BootstrappedValue: true,
	}
}

// Host 返回本地地址
func (m *MockDHT) Host() string {
	return m.HostValue
}

// Port 返回本地端口
func (m *MockDHT) Port() int {
	return m.PortValue
}

// Bootstrapped 是否已引导
func (m *MockDHT) Bootstrapped() bool {
	return m.BootstrappedValue
}

// AddNode 添加一个节点
func (m *MockDHT) AddNode(n interfaces.DHTNode) {
	m.mu.Lock()
	m.Nodes = append(m.Nodes, n)
	m.mu.Unlock()
}

// ToArray 返回节点副本
func (m *MockDHT) ToArray() []interfaces.DHTNode {
	m.mu.Lock()
	m.ToArrayCalls++
	if m.ToArrayFunc != nil {
		m.mu.Unlock()
		return m.ToArrayFunc()
	}
	out := make([]interfaces.DHTNode, len(m.Nodes))
	copy(out, m.Nodes)
	m.mu.Unlock()
	return out
}
