package types

// DHTNodeInfo 路由表节点的对外安全投影
//
// 逐字段填充，只包含这里列出的字段；路由表内部的有序集合链接
// 不属于该类型，因此不可能被序列化输出。
type DHTNodeInfo struct {
	// ID 节点标识（十六进制，64 个字符）
	ID string `json:"id"`

	Host string `json:"host"`
	Port int    `json:"port"`

	// Added 加入路由表时的 tick
	Added uint64 `json:"added"`

	// Pinged 最近一次成功 ping 的 tick
	Pinged uint64 `json:"pinged"`

	// Seen 最近一次收到消息的 tick
	Seen uint64 `json:"seen"`

	// DownHints 连续未响应次数
	DownHints int `json:"downHints"`
}
