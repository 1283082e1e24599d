package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(port int) *Node {
	return &Node{id: NodeID("127.0.0.1", port), host: "127.0.0.1", port: port}
}

func ports(nodes []*Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.port
	}
	return out
}

// TestNodeSet_Order 测试有序集合的顺序维护
func TestNodeSet_Order(t *testing.T) {
	s := newNodeSet()
	a, b, c := testNode(1), testNode(2), testNode(3)

	require.True(t, s.add(a))
	require.True(t, s.add(b))
	require.True(t, s.add(c))
	assert.False(t, s.add(a), "重复添加应该返回 false")
	assert.Equal(t, 3, s.len())
	assert.Equal(t, []int{1, 2, 3}, ports(s.toArray()))
	assert.Same(t, a, s.oldest())

	s.moveToTail(a)
	assert.Equal(t, []int{2, 3, 1}, ports(s.toArray()))
	assert.Same(t, b, s.oldest())

	s.remove(c)
	assert.Equal(t, []int{2, 1}, ports(s.toArray()))
	assert.Nil(t, s.get(c.id))
	assert.Nil(t, c.prev)
	assert.Nil(t, c.next)

	s.remove(b)
	s.remove(a)
	assert.Nil(t, s.oldest())
	assert.Empty(t, s.toArray())

	t.Log("✅ 有序集合顺序正确")
}

// TestNodeSet_ToArrayDetached 测试 toArray 返回不含链接的副本
func TestNodeSet_ToArrayDetached(t *testing.T) {
	s := newNodeSet()
	for p := 1; p <= 4; p++ {
		s.add(testNode(p))
	}

	out := s.toArray()
	require.Len(t, out, 4)
	for _, n := range out {
		assert.Nil(t, n.prev)
		assert.Nil(t, n.next)
		assert.NotSame(t, s.get(n.id), n)
	}

	// 修改副本不影响集合
	out[0].downHints = 9
	assert.Equal(t, 0, s.get(out[0].id).downHints)
}

// TestNode_IDCopy 测试 ID 访问器返回副本
func TestNode_IDCopy(t *testing.T) {
	n := testNode(7)
	id := n.ID()
	id[0] ^= 0xff
	assert.Equal(t, NodeID("127.0.0.1", 7), n.id)
}
