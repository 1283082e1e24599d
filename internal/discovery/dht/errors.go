package dht

import "errors"

// 预定义错误
var (
	// ErrDHTClosed DHT 已关闭
	ErrDHTClosed = errors.New("dht: DHT is closed")

	// ErrAlreadyStarted DHT 已启动
	ErrAlreadyStarted = errors.New("dht: DHT already started")

	// ErrNotStarted DHT 未启动
	ErrNotStarted = errors.New("dht: DHT not started")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("dht: invalid config")

	// ErrTimeout 请求超时
	ErrTimeout = errors.New("dht: request timeout")

	// ErrInvalidMessage 无法解析的消息
	ErrInvalidMessage = errors.New("dht: invalid message")

	// ErrNoNodes 路由表中没有可用节点
	ErrNoNodes = errors.New("dht: no nodes available")

	// ErrBootstrapFailed 所有引导节点都不可达
	ErrBootstrapFailed = errors.New("dht: bootstrap failed")

	// ErrInvalidAddress 无效的 host:port
	ErrInvalidAddress = errors.New("dht: invalid address")

	// ErrInvalidRecord 无效的宣告记录
	ErrInvalidRecord = errors.New("dht: invalid record")

	// ErrAnnounceFailed 没有任何节点接受宣告
	ErrAnnounceFailed = errors.New("dht: announce failed")
)
