package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// KBucket 基础功能测试
// ============================================================================

// TestKBucket_AddAndFull 测试桶满后进入替换缓存
func TestKBucket_AddAndFull(t *testing.T) {
	bucket := NewKBucket(2)

	assert.True(t, bucket.Add(testNode(1)))
	assert.True(t, bucket.Add(testNode(2)))
	assert.True(t, bucket.IsFull())

	// 桶满，进入替换缓存
	assert.False(t, bucket.Add(testNode(3)))
	assert.Equal(t, 2, bucket.Size())

	// 已存在的节点移到前端
	assert.True(t, bucket.Add(testNode(1)))
	assert.Equal(t, 1, bucket.Nodes()[0].port)

	t.Log("✅ K 桶容量限制正确")
}

// TestKBucket_RemovePromotes 测试移除后从替换缓存提升
func TestKBucket_RemovePromotes(t *testing.T) {
	bucket := NewKBucket(1)
	first := testNode(1)
	spare := testNode(2)

	require.True(t, bucket.Add(first))
	require.False(t, bucket.Add(spare))

	removed, promoted := bucket.Remove(first.id)
	assert.True(t, removed)
	require.NotNil(t, promoted)
	assert.Equal(t, spare.id, promoted.id)
	assert.NotNil(t, bucket.Get(spare.id))

	removed, promoted = bucket.Remove(first.id)
	assert.False(t, removed)
	assert.Nil(t, promoted)
}

// ============================================================================
// RoutingTable 测试
// ============================================================================

// TestRoutingTable_NearestPeers 测试最近节点查询
func TestRoutingTable_NearestPeers(t *testing.T) {
	local := NodeID("127.0.0.1", 1)
	rt := NewRoutingTable(local, BucketSize)

	// 不添加自己
	assert.False(t, rt.Add(&Node{id: local}))

	for p := 2; p <= 20; p++ {
		rt.Add(testNode(p))
	}
	assert.Equal(t, 19, rt.Size())

	target := NodeID("127.0.0.1", 10)
	nearest := rt.NearestPeers(target, 5)
	require.Len(t, nearest, 5)
	assert.Equal(t, target, nearest[0].id)
	for i := 1; i < len(nearest); i++ {
		assert.LessOrEqual(t, CompareDistance(nearest[i-1].id, nearest[i].id, target), 0)
	}

	removed, _ := rt.Remove(target)
	assert.True(t, removed)
	assert.Nil(t, rt.Get(target))

	t.Log("✅ 路由表最近节点查询正确")
}
