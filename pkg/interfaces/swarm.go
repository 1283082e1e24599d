// Package interfaces 定义 swarmscope 公共接口
//
// 本文件定义 Swarm 组件接口，对应 internal/core/swarm/ 实现。
package interfaces

import (
	"github.com/dep2p/go-swarmscope/pkg/types"
)

// Connection 一条已完成握手的连接
type Connection interface {
	// RemotePublicKey 返回远端公钥
	RemotePublicKey() []byte

	// RemoteHost 返回远端 IP
	RemoteHost() string

	// RemotePort 返回远端端口
	RemotePort() int

	// LocalPort 返回本地端口
	LocalPort() int

	// OnClose 注册一次性关闭回调
	//
	// 连接关闭时每个回调恰好调用一次；如果连接已经关闭，回调立即执行。
	OnClose(fn func())

	// Close 关闭连接
	Close() error
}

// SwarmSnapshot 连接集合与节点注册表的同一时刻快照
//
// 两部分在同一把锁下采集，因此 Connections 中的每条连接
// 在 Peers 中都有对应的记录。
type SwarmSnapshot struct {
	Connections []Connection

	// Peers 十六进制公钥 -> 注册表条目（深拷贝）
	Peers map[string]types.PeerRecord
}

// Swarm 定义连接群接口
type Swarm interface {
	// PublicKey 返回本地公钥
	PublicKey() []byte

	// Connections 返回当前打开的连接
	Connections() []Connection

	// Peers 返回节点注册表快照（十六进制公钥 -> 条目）
	Peers() map[string]types.PeerRecord

	// Snapshot 返回连接与注册表的一致快照
	Snapshot() SwarmSnapshot

	// OnConnection 注册连接建立回调
	//
	// 回调在连接加入连接集合之后调用，每条连接恰好一次。
	OnConnection(fn func(Connection))

	// DHT 返回 Swarm 使用的 DHT
	DHT() DHT
}
