package swarm

import "errors"

// 错误定义
var (
	// ErrSwarmClosed swarm 已关闭
	ErrSwarmClosed = errors.New("swarm closed")

	// ErrAlreadyStarted 已经启动
	ErrAlreadyStarted = errors.New("swarm already started")

	// ErrNotStarted 尚未启动
	ErrNotStarted = errors.New("swarm not started")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("invalid swarm config")

	// ErrListenFailed 监听失败
	ErrListenFailed = errors.New("listen failed")

	// ErrInvalidTopic 主题必须是 32 字节
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrInvalidKey 无效密钥
	ErrInvalidKey = errors.New("invalid key")

	// ErrHandshakeFailed 握手失败
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrSelfConnection 连接到自己
	ErrSelfConnection = errors.New("connection to self")

	// ErrKeyMismatch 远端公钥与期望不符
	ErrKeyMismatch = errors.New("remote key mismatch")

	// ErrPeerBanned 节点已被封禁
	ErrPeerBanned = errors.New("peer banned")

	// ErrDuplicateConnection 与同一节点的重复连接
	ErrDuplicateConnection = errors.New("duplicate connection")

	// ErrTooManyPeers 连接数达到上限
	ErrTooManyPeers = errors.New("too many peers")

	// ErrConnClosed 连接已关闭
	ErrConnClosed = errors.New("connection closed")

	// ErrMessageTooLarge 消息超过单帧上限
	ErrMessageTooLarge = errors.New("message too large")
)
