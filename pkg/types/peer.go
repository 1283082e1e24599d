package types

import (
	"encoding/hex"
	"fmt"
)

// ============================================================================
//                              优先级
// ============================================================================

// Priority 节点连接优先级
type Priority int

const (
	// PriorityVeryLow 极低（多次连接失败）
	PriorityVeryLow Priority = iota
	// PriorityLow 低
	PriorityLow
	// PriorityNormal 普通（默认）
	PriorityNormal
	// PriorityHigh 高
	PriorityHigh
	// PriorityVeryHigh 极高（显式指定的节点）
	PriorityVeryHigh
)

// String 返回优先级名称
func (p Priority) String() string {
	switch p {
	case PriorityVeryLow:
		return "very_low"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityVeryHigh:
		return "very_high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ============================================================================
//                              节点注册表条目
// ============================================================================

// PeerRecord 本地节点注册表中的条目
//
// 每个与 Swarm 交互过的公钥对应一条记录，与当前是否连接无关。
type PeerRecord struct {
	// PublicKey 远端公钥
	PublicKey []byte

	// Banned 是否被封禁
	Banned bool

	// Priority 连接优先级
	Priority Priority

	// Client 本地是否为发起方
	Client bool

	// Topics 发现该节点时所在的主题（discovery key）
	Topics [][]byte
}

// Clone 返回深拷贝，调用方可自由修改
func (r PeerRecord) Clone() PeerRecord {
	c := r
	c.PublicKey = append([]byte(nil), r.PublicKey...)
	c.Topics = make([][]byte, len(r.Topics))
	for i, t := range r.Topics {
		c.Topics[i] = append([]byte(nil), t...)
	}
	return c
}

// HasTopic 检查是否包含指定主题
func (r PeerRecord) HasTopic(topic []byte) bool {
	for _, t := range r.Topics {
		if string(t) == string(topic) {
			return true
		}
	}
	return false
}

// HexTopics 返回十六进制编码的主题列表
func (r PeerRecord) HexTopics() []string {
	out := make([]string, len(r.Topics))
	for i, t := range r.Topics {
		out[i] = hex.EncodeToString(t)
	}
	return out
}

// ============================================================================
//                              对外输出：PeerInfo
// ============================================================================

// PeerInfo 一条打开连接的关联视图
//
// 由 Connection ⋈ PeerRecord ⋈ DHT 节点集合在每次读取时重新计算，从不存储。
type PeerInfo struct {
	RemoteHost string   `json:"remoteHost"`
	RemotePort int      `json:"remotePort"`
	OwnPort    int      `json:"ownPort"`
	PublicKey  string   `json:"publicKey"`
	Banned     bool     `json:"banned"`
	Priority   Priority `json:"priority"`
	Client     bool     `json:"client"`
	Topics     []string `json:"topics"`
	OnDHT      bool     `json:"onDht"`
}
