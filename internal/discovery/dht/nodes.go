package dht

import (
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
)

// ============================================================================
//                              路由表节点
// ============================================================================

// Node 路由表节点
//
// prev/next 是有序集合的内部链接，只在持有 DHT 锁时访问，
// 永远不会通过 ToArray 或接口访问器暴露出去。
type Node struct {
	id   ID
	host string
	port int

	// added 入表时的 tick
	added uint64
	// pinged 最近一次被我们 ping 成功的 tick
	pinged uint64
	// seen 最近一次收到该节点消息的 tick
	seen uint64
	// downHints 连续 ping 失败次数
	downHints int

	prev *Node
	next *Node
}

var _ pkgif.DHTNode = (*Node)(nil)

// ID 返回节点 ID 的副本
func (n *Node) ID() []byte {
	id := n.id
	return id[:]
}

// Host 返回节点地址
func (n *Node) Host() string { return n.host }

// Port 返回节点端口
func (n *Node) Port() int { return n.port }

// Added 返回入表 tick
func (n *Node) Added() uint64 { return n.added }

// Pinged 返回最近一次 ping 成功的 tick
func (n *Node) Pinged() uint64 { return n.pinged }

// Seen 返回最近一次收到消息的 tick
func (n *Node) Seen() uint64 { return n.seen }

// DownHints 返回连续失败次数
func (n *Node) DownHints() int { return n.downHints }

// detached 返回不含链接的副本
func (n *Node) detached() *Node {
	return &Node{
		id:        n.id,
		host:      n.host,
		port:      n.port,
		added:     n.added,
		pinged:    n.pinged,
		seen:      n.seen,
		downHints: n.downHints,
	}
}

// ============================================================================
//                              有序集合
// ============================================================================

// nodeSet 按最近活跃排序的节点集合
//
// head 是最久没有动静的节点，tail 是最近活跃的节点。
// 不是并发安全的，由 DHT 的锁保护。
type nodeSet struct {
	head  *Node
	tail  *Node
	index map[ID]*Node
}

func newNodeSet() *nodeSet {
	return &nodeSet{index: make(map[ID]*Node)}
}

// len 返回节点数量
func (s *nodeSet) len() int {
	return len(s.index)
}

// get 按 ID 查找
func (s *nodeSet) get(id ID) *Node {
	return s.index[id]
}

// add 追加到尾部，已存在时返回 false
func (s *nodeSet) add(n *Node) bool {
	if _, ok := s.index[n.id]; ok {
		return false
	}
	s.index[n.id] = n
	s.pushBack(n)
	return true
}

// remove 从集合中摘除
func (s *nodeSet) remove(n *Node) {
	if _, ok := s.index[n.id]; !ok {
		return
	}
	delete(s.index, n.id)
	s.unlink(n)
}

// moveToTail 标记为最近活跃
func (s *nodeSet) moveToTail(n *Node) {
	if _, ok := s.index[n.id]; !ok || s.tail == n {
		return
	}
	s.unlink(n)
	s.pushBack(n)
}

// oldest 返回最久没有动静的节点
func (s *nodeSet) oldest() *Node {
	return s.head
}

// toArray 按从旧到新的顺序返回不含链接的副本
func (s *nodeSet) toArray() []*Node {
	out := make([]*Node, 0, len(s.index))
	for n := s.head; n != nil; n = n.next {
		out = append(out, n.detached())
	}
	return out
}

func (s *nodeSet) pushBack(n *Node) {
	n.prev = s.tail
	n.next = nil
	if s.tail != nil {
		s.tail.next = n
	} else {
		s.head = n
	}
	s.tail = n
}

func (s *nodeSet) unlink(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}
