// Package interfaces 定义 swarmscope 公共接口
//
// 本文件定义 DHT 接口，对应 internal/discovery/dht/ 实现。
package interfaces

// DHT 路由表视图
type DHT interface {
	// Host 返回本地 DHT 地址
	Host() string

	// Port 返回本地 DHT 端口
	Port() int

	// Bootstrapped 是否已完成引导
	Bootstrapped() bool

	// ToArray 按有序集合顺序返回当前路由表节点
	ToArray() []DHTNode
}

// DHTNode 路由表节点
//
// 只通过访问器暴露数据，存储层的内部链接不在接口中。
type DHTNode interface {
	ID() []byte
	Host() string
	Port() int
	Added() uint64
	Pinged() uint64
	Seen() uint64
	DownHints() int
}
