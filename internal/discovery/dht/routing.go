package dht

import (
	"sort"
)

// ============================================================================
//                              常量定义
// ============================================================================

const (
	// KeySize 密钥大小（256 位）
	KeySize = IDSize * 8

	// BucketSize K 桶大小
	BucketSize = 20
)

// ============================================================================
//                              K 桶
// ============================================================================

// KBucket K 桶
//
// 不是并发安全的，由 DHT 的锁保护。
type KBucket struct {
	// 节点列表（最近活跃的在前）
	nodes []*Node

	// 替换缓存（当桶满时存储候选节点）
	replacementCache []*Node

	capacity int
}

// NewKBucket 创建新的 K 桶
func NewKBucket(capacity int) *KBucket {
	if capacity <= 0 {
		capacity = BucketSize
	}
	return &KBucket{
		capacity: capacity,
	}
}

// Size 返回桶中节点数量
func (b *KBucket) Size() int {
	return len(b.nodes)
}

// IsFull 检查桶是否已满
func (b *KBucket) IsFull() bool {
	return len(b.nodes) >= b.capacity
}

// Nodes 返回所有节点
func (b *KBucket) Nodes() []*Node {
	result := make([]*Node, len(b.nodes))
	copy(result, b.nodes)
	return result
}

// Add 添加节点
//
// 返回 true 表示节点在桶中，false 表示桶已满、节点进入替换缓存。
func (b *KBucket) Add(node *Node) bool {
	for i, existing := range b.nodes {
		if existing.id == node.id {
			// 移动到列表前端（最近活跃）
			b.nodes = append(b.nodes[:i], b.nodes[i+1:]...)
			b.nodes = append([]*Node{existing}, b.nodes...)
			return true
		}
	}

	if len(b.nodes) < b.capacity {
		b.nodes = append([]*Node{node}, b.nodes...)
		return true
	}

	// 桶已满，添加到替换缓存
	b.addToReplacementCache(node)
	return false
}

// addToReplacementCache 添加到替换缓存
func (b *KBucket) addToReplacementCache(node *Node) {
	for i, existing := range b.replacementCache {
		if existing.id == node.id {
			b.replacementCache = append(b.replacementCache[:i], b.replacementCache[i+1:]...)
			break
		}
	}

	b.replacementCache = append([]*Node{node}, b.replacementCache...)

	if len(b.replacementCache) > b.capacity {
		b.replacementCache = b.replacementCache[:b.capacity]
	}
}

// Remove 移除节点
//
// 如果从节点列表中移除，会从替换缓存中提升一个节点并返回它。
func (b *KBucket) Remove(id ID) (removed bool, promoted *Node) {
	for i, node := range b.nodes {
		if node.id == id {
			b.nodes = append(b.nodes[:i], b.nodes[i+1:]...)

			if len(b.replacementCache) > 0 {
				promoted = b.replacementCache[0]
				b.replacementCache = b.replacementCache[1:]
				b.nodes = append(b.nodes, promoted)
			}
			return true, promoted
		}
	}

	for i, node := range b.replacementCache {
		if node.id == id {
			b.replacementCache = append(b.replacementCache[:i], b.replacementCache[i+1:]...)
			return true, nil
		}
	}

	return false, nil
}

// Get 获取节点
func (b *KBucket) Get(id ID) *Node {
	for _, node := range b.nodes {
		if node.id == id {
			return node
		}
	}
	return nil
}

// ============================================================================
//                              路由表
// ============================================================================

// RoutingTable 路由表
//
// 不是并发安全的，由 DHT 的锁保护。
type RoutingTable struct {
	// 本地节点 ID
	localID ID

	// K 桶数组（256 个桶）
	buckets []*KBucket
}

// NewRoutingTable 创建新的路由表
func NewRoutingTable(localID ID, bucketSize int) *RoutingTable {
	rt := &RoutingTable{
		localID: localID,
		buckets: make([]*KBucket, KeySize),
	}

	for i := 0; i < KeySize; i++ {
		rt.buckets[i] = NewKBucket(bucketSize)
	}

	return rt
}

// LocalID 返回本地 ID
func (rt *RoutingTable) LocalID() ID {
	return rt.localID
}

// Add 添加节点
func (rt *RoutingTable) Add(node *Node) bool {
	if node.id == rt.localID {
		return false // 不添加自己
	}

	idx := BucketIndex(rt.localID, node.id)
	return rt.buckets[idx].Add(node)
}

// Remove 移除节点
func (rt *RoutingTable) Remove(id ID) (bool, *Node) {
	if id == rt.localID {
		return false, nil
	}

	idx := BucketIndex(rt.localID, id)
	return rt.buckets[idx].Remove(id)
}

// Get 获取节点
func (rt *RoutingTable) Get(id ID) *Node {
	if id == rt.localID {
		return nil
	}

	idx := BucketIndex(rt.localID, id)
	return rt.buckets[idx].Get(id)
}

// Size 返回路由表中的节点总数
func (rt *RoutingTable) Size() int {
	total := 0
	for _, bucket := range rt.buckets {
		total += bucket.Size()
	}
	return total
}

// NearestPeers 查找最近的 N 个节点
func (rt *RoutingTable) NearestPeers(target ID, count int) []*Node {
	var allNodes []*Node
	for _, bucket := range rt.buckets {
		allNodes = append(allNodes, bucket.nodes...)
	}

	sort.Slice(allNodes, func(i, j int) bool {
		return CompareDistance(allNodes[i].id, allNodes[j].id, target) < 0
	})

	if len(allNodes) > count {
		allNodes = allNodes[:count]
	}

	return allNodes
}
