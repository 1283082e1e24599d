package dht

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

// TestNodeID_Deterministic 测试节点 ID 派生
func TestNodeID_Deterministic(t *testing.T) {
	a := NodeID("127.0.0.1", 49737)
	b := NodeID("127.0.0.1", 49737)
	c := NodeID("127.0.0.1", 49738)
	d := NodeID("127.0.0.2", 49737)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a.String(), 64)

	t.Log("✅ 节点 ID 派生是确定的")
}

// TestNodeID_Layout 测试 IPv4 ‖ uint16le(port) 布局
func TestNodeID_Layout(t *testing.T) {
	buf := []byte{10, 0, 0, 7}
	buf = binary.LittleEndian.AppendUint16(buf, 8080)
	want := blake2b.Sum256(buf)

	assert.Equal(t, ID(want), NodeID("10.0.0.7", 8080))
}

// TestCommonPrefixLen 测试共同前缀长度
func TestCommonPrefixLen(t *testing.T) {
	var a, b ID
	assert.Equal(t, KeySize, CommonPrefixLen(a, b))

	b[0] = 0x80
	assert.Equal(t, 0, CommonPrefixLen(a, b))

	b[0] = 0x01
	assert.Equal(t, 7, CommonPrefixLen(a, b))

	b[0] = 0
	b[3] = 0x10
	assert.Equal(t, 27, CommonPrefixLen(a, b))
}

// TestCompareDistance 测试距离比较
func TestCompareDistance(t *testing.T) {
	var target, near, far ID
	near[31] = 0x01
	far[0] = 0x01

	assert.Equal(t, -1, CompareDistance(near, far, target))
	assert.Equal(t, 1, CompareDistance(far, near, target))
	assert.Equal(t, 0, CompareDistance(near, near, target))
}

// TestSplitHostPort 测试地址解析
func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("127.0.0.1:49737")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 49737, port)

	host, _, err = splitHostPort(":1000")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)

	_, _, err = splitHostPort("127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, _, err = splitHostPort("127.0.0.1:0")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
