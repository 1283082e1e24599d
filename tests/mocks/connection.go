package mocks

import (
	"sync"

	"github.com/dep2p/go-swarmscope/pkg/interfaces"
)

// MockConnection 模拟 Connection 接口实现
type MockConnection struct {
	mu sync.Mutex

	// 基本属性
	RemoteKey []byte
	Host      string
	Port      int
	OwnPort   int
	Closed    bool
	callbacks []func()

	// 可覆盖的方法
	CloseFunc func() error

	// 调用记录
	OnCloseCalls int
}

var _ interfaces.Connection = (*MockConnection)(nil)

// NewMockConnection 创建 MockConnection
func NewMockConnection(remoteKey []byte, host string, port, localPort int) *MockConnection {
	return &MockConnection{
		RemoteKey: remoteKey,
		Host:      host,
		Port:      port,
		OwnPort:   localPort,
	}
}

// RemotePublicKey 返回远端公钥
func (m *MockConnection) RemotePublicKey() []byte {
	return m.RemoteKey
}

// RemoteHost 返回远端 IP
func (m *MockConnection) RemoteHost() string {
	return m.Host
}

// RemotePort 返回远端端口
func (m *MockConnection) RemotePort() int {
	return m.Port
}

// LocalPort 返回本地端口
func (m *MockConnection) LocalPort() int {
	return m.OwnPort
}

// OnClose 注册关闭回调，已关闭时立即执行
func (m *MockConnection) OnClose(fn func()) {
	m.mu.Lock()
	m.OnCloseCalls++
	if m.Closed {
		m.mu.Unlock()
		fn()
		return
	}
	m.callbacks = append(m.callbacks, fn)
	m.mu.Unlock()
}

// Close 关闭连接并执行回调（只执行一次）
func (m *MockConnection) Close() error {
	m.mu.Lock()
	if m.Closed {
		m.mu.Unlock()
		return nil
	}
	m.Closed = true
	callbacks := m.callbacks
	m.callbacks = nil
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
