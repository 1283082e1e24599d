package dht

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"net"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// IDSize 节点 ID 字节长度
const IDSize = 32

// ID 节点 ID（BLAKE2b-256）
type ID [IDSize]byte

// NodeID 由 (host, port) 派生节点 ID
//
// IPv4 地址取 4 字节，端口以 uint16 小端序追加。非 IP 的 host 按原始字节参与计算。
// 这是纯函数，同样的地址永远得到同样的 ID。
func NodeID(host string, port int) ID {
	buf := make([]byte, 0, 18)
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			buf = append(buf, ip4...)
		} else {
			buf = append(buf, ip.To16()...)
		}
	} else {
		buf = append(buf, host...)
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(port))
	return blake2b.Sum256(buf)
}

// randomID 生成随机 ID（临时节点使用）
func randomID() ID {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("dht: read random id: %v", err))
	}
	return id
}

// idFromBytes 将字节切片转换为 ID
func idFromBytes(b []byte) (ID, bool) {
	var id ID
	if len(b) != IDSize {
		return id, false
	}
	copy(id[:], b)
	return id, true
}

// String 返回十六进制表示
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// ShortString 返回前 8 个十六进制字符
func (id ID) ShortString() string {
	return id.String()[:8]
}

// ============================================================================
//                              XOR 距离
// ============================================================================

// XORDistance 计算两个 ID 的 XOR 距离
func XORDistance(a, b ID) ID {
	var d ID
	for i := range d {
		d[i] = a[i] ^ b[i]
	}
	return d
}

// CompareDistance 比较 a 和 b 到 target 的距离
// 返回：
//
//	-1 如果 dist(a, target) < dist(b, target)
//	 0 如果 dist(a, target) == dist(b, target)
//	 1 如果 dist(a, target) > dist(b, target)
func CompareDistance(a, b, target ID) int {
	da := XORDistance(a, target)
	db := XORDistance(b, target)
	return bytes.Compare(da[:], db[:])
}

// CommonPrefixLen 计算两个 ID 的共同前缀长度（按位计数）
func CommonPrefixLen(a, b ID) int {
	for i := 0; i < IDSize; i++ {
		if x := a[i] ^ b[i]; x != 0 {
			return i*8 + bits.LeadingZeros8(x)
		}
	}
	return KeySize
}

// BucketIndex 计算 id 相对于 local 所在的 K-桶索引
//
// 与 local 相同的 ID 返回 KeySize，调用方需要自行排除。
func BucketIndex(local, id ID) int {
	return CommonPrefixLen(local, id)
}

// ============================================================================
//                              地址解析
// ============================================================================

// splitHostPort 解析 host:port
func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: %s: bad port", ErrInvalidAddress, addr)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return host, port, nil
}

// udpAddr 将 host/port 转为 *net.UDPAddr
func udpAddr(host string, port int) (*net.UDPAddr, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, host, err)
		}
		for _, candidate := range ips {
			if candidate.To4() != nil {
				ip = candidate
				break
			}
		}
		if ip == nil {
			return nil, fmt.Errorf("%w: %s has no IPv4 address", ErrInvalidAddress, host)
		}
	}
	if ip4 := ip.To4(); ip4 != nil {
		ip = ip4
	}
	return &net.UDPAddr{IP: ip, Port: port}, nil
}

// hostOf 返回 UDP 地址的 host 字符串（IPv4 优先使用点分格式）
func hostOf(addr *net.UDPAddr) string {
	if ip4 := addr.IP.To4(); ip4 != nil {
		return ip4.String()
	}
	return addr.IP.String()
}
