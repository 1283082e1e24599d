package dht

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ============================================================================
//                              消息类型
// ============================================================================

// MessageType DHT 消息类型
type MessageType uint64

const (
	// MessagePing 存活探测
	MessagePing MessageType = iota + 1
	// MessageFindNode 查找距离 target 最近的节点
	MessageFindNode
	// MessageAnnounce 在 target 主题下宣告一条记录
	MessageAnnounce
	// MessageLookup 查询 target 主题下的记录
	MessageLookup
	// MessageResponse 对以上请求的响应
	MessageResponse
)

// String 返回消息类型名称
func (t MessageType) String() string {
	switch t {
	case MessagePing:
		return "PING"
	case MessageFindNode:
		return "FIND_NODE"
	case MessageAnnounce:
		return "ANNOUNCE"
	case MessageLookup:
		return "LOOKUP"
	case MessageResponse:
		return "RESPONSE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint64(t))
	}
}

// 字段编号
//
//	message Message {
//	  uint64   type    = 1;
//	  uint64   tid     = 2;
//	  bytes    id      = 3;  // 发送方节点 ID，临时节点为空
//	  bytes    target  = 4;
//	  repeated Peer   closer  = 5;
//	  repeated Record records = 6;
//	  Peer     to      = 7;  // 响应方观测到的请求方地址
//	}
//	message Peer   { bytes id = 1; string host = 2; uint32 port = 3; }
//	message Record { bytes public_key = 1; string host = 2; uint32 port = 3; }
const (
	fieldType    protowire.Number = 1
	fieldTID     protowire.Number = 2
	fieldID      protowire.Number = 3
	fieldTarget  protowire.Number = 4
	fieldCloser  protowire.Number = 5
	fieldRecords protowire.Number = 6
	fieldTo      protowire.Number = 7

	fieldPeerID   protowire.Number = 1
	fieldPeerHost protowire.Number = 2
	fieldPeerPort protowire.Number = 3
)

// PeerAddr 消息中携带的节点地址
type PeerAddr struct {
	ID   []byte
	Host string
	Port int
}

// Record 主题下的宣告记录
type Record struct {
	// PublicKey 宣告方的 swarm 公钥
	PublicKey []byte
	// Host 宣告方的 swarm 地址，为空时由接收方填入观测地址
	Host string
	// Port 宣告方的 swarm 端口
	Port int
}

// Message DHT 消息
type Message struct {
	Type    MessageType
	TID     uint64
	ID      []byte
	Target  []byte
	Closer  []PeerAddr
	Records []Record
	To      *PeerAddr
}

// ============================================================================
//                              编码
// ============================================================================

// Marshal 编码消息
func (m *Message) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Type))
	b = protowire.AppendTag(b, fieldTID, protowire.VarintType)
	b = protowire.AppendVarint(b, m.TID)
	if len(m.ID) > 0 {
		b = protowire.AppendTag(b, fieldID, protowire.BytesType)
		b = protowire.AppendBytes(b, m.ID)
	}
	if len(m.Target) > 0 {
		b = protowire.AppendTag(b, fieldTarget, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Target)
	}
	for _, p := range m.Closer {
		b = protowire.AppendTag(b, fieldCloser, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalAddr(p.ID, p.Host, p.Port))
	}
	for _, r := range m.Records {
		b = protowire.AppendTag(b, fieldRecords, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalAddr(r.PublicKey, r.Host, r.Port))
	}
	if m.To != nil {
		b = protowire.AppendTag(b, fieldTo, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalAddr(m.To.ID, m.To.Host, m.To.Port))
	}
	return b
}

// marshalAddr Peer 与 Record 共用同一种布局
func marshalAddr(key []byte, host string, port int) []byte {
	var b []byte
	if len(key) > 0 {
		b = protowire.AppendTag(b, fieldPeerID, protowire.BytesType)
		b = protowire.AppendBytes(b, key)
	}
	if host != "" {
		b = protowire.AppendTag(b, fieldPeerHost, protowire.BytesType)
		b = protowire.AppendString(b, host)
	}
	b = protowire.AppendTag(b, fieldPeerPort, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(port))
	return b
}

// ============================================================================
//                              解码
// ============================================================================

// UnmarshalMessage 解码消息，未知字段被跳过
func UnmarshalMessage(b []byte) (*Message, error) {
	m := &Message{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: type: %v", ErrInvalidMessage, protowire.ParseError(n))
			}
			m.Type = MessageType(v)
			b = b[n:]

		case num == fieldTID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: tid: %v", ErrInvalidMessage, protowire.ParseError(n))
			}
			m.TID = v
			b = b[n:]

		case num == fieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: id: %v", ErrInvalidMessage, protowire.ParseError(n))
			}
			m.ID = append([]byte(nil), v...)
			b = b[n:]

		case num == fieldTarget && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: target: %v", ErrInvalidMessage, protowire.ParseError(n))
			}
			m.Target = append([]byte(nil), v...)
			b = b[n:]

		case (num == fieldCloser || num == fieldRecords || num == fieldTo) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrInvalidMessage, num, protowire.ParseError(n))
			}
			key, host, port, err := unmarshalAddr(v)
			if err != nil {
				return nil, err
			}
			switch num {
			case fieldCloser:
				m.Closer = append(m.Closer, PeerAddr{ID: key, Host: host, Port: port})
			case fieldRecords:
				m.Records = append(m.Records, Record{PublicKey: key, Host: host, Port: port})
			default:
				m.To = &PeerAddr{ID: key, Host: host, Port: port}
			}
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrInvalidMessage, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if m.Type < MessagePing || m.Type > MessageResponse {
		return nil, fmt.Errorf("%w: unknown type %d", ErrInvalidMessage, uint64(m.Type))
	}
	return m, nil
}

func unmarshalAddr(b []byte) (key []byte, host string, port int, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, "", 0, fmt.Errorf("%w: addr: %v", ErrInvalidMessage, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldPeerID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, "", 0, fmt.Errorf("%w: addr id: %v", ErrInvalidMessage, protowire.ParseError(n))
			}
			key = append([]byte(nil), v...)
			b = b[n:]

		case num == fieldPeerHost && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, "", 0, fmt.Errorf("%w: addr host: %v", ErrInvalidMessage, protowire.ParseError(n))
			}
			host = v
			b = b[n:]

		case num == fieldPeerPort && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, "", 0, fmt.Errorf("%w: addr port: %v", ErrInvalidMessage, protowire.ParseError(n))
			}
			if v > 65535 {
				return nil, "", 0, fmt.Errorf("%w: port %d out of range", ErrInvalidMessage, v)
			}
			port = int(v)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, "", 0, fmt.Errorf("%w: addr field %d: %v", ErrInvalidMessage, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return key, host, port, nil
}
