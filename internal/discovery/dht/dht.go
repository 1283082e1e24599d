package dht

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-swarmscope/internal/util/logger"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
)

var log = logger.Logger("discovery/dht")

const (
	// maxPacketSize UDP 读缓冲大小
	maxPacketSize = 64 * 1024

	// maxRecordsPerResponse 单个 LOOKUP 响应最多携带的记录数
	maxRecordsPerResponse = 20

	// Alpha 并发请求数
	Alpha = 5
)

// inbound 收到的响应
type inbound struct {
	msg  *Message
	from *net.UDPAddr
}

// pendingRequest 等待响应的请求
type pendingRequest struct {
	addr string
	ch   chan inbound
}

// DHT 轻量 Kademlia DHT 实现
type DHT struct {
	// config 配置
	config *Config

	// records 宣告记录
	records *RecordStore

	// nextTID 请求事务号
	nextTID atomic.Uint64

	// 以下字段由 mu 保护
	mu           sync.Mutex
	id           ID
	conn         *net.UDPConn
	port         int
	table        *RoutingTable
	nodes        *nodeSet
	tick         uint64
	bootstrapped bool
	observed     *PeerAddr
	pending      map[uint64]pendingRequest

	// 生命周期
	ctx       context.Context
	ctxCancel context.CancelFunc
	started   atomic.Bool
	closed    atomic.Bool
	wg        sync.WaitGroup
}

var _ pkgif.DHT = (*DHT)(nil)

// New 创建 DHT 实例
//
// cfg 为 nil 时使用 DefaultConfig()，opts 在 cfg 之上生效。
func New(cfg *Config, opts ...ConfigOption) (*DHT, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		c := *cfg
		cfg = &c
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Clock == nil {
		cfg.Clock = DefaultConfig().Clock
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &DHT{
		config:    cfg,
		records:   NewRecordStore(cfg.MaxRecords, cfg.RecordTTL),
		nodes:     newNodeSet(),
		pending:   make(map[uint64]pendingRequest),
		ctx:       ctx,
		ctxCancel: cancel,
	}, nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 绑定 UDP 端口并启动后台循环
func (d *DHT) Start(_ context.Context) error {
	if d.closed.Load() {
		return ErrDHTClosed
	}
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	laddr, err := udpAddr(d.config.Host, d.config.Port)
	if err != nil {
		d.started.Store(false)
		return err
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		d.started.Store(false)
		return fmt.Errorf("dht: listen udp %s: %w", laddr, err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port

	var id ID
	if d.config.Ephemeral {
		id = randomID()
	} else {
		id = NodeID(d.config.Host, port)
	}

	d.mu.Lock()
	d.id = id
	d.conn = conn
	d.port = port
	d.table = NewRoutingTable(id, d.config.BucketSize)
	d.mu.Unlock()

	d.wg.Add(2)
	go d.readLoop(conn)
	go d.tickLoop()

	log.Info("DHT 启动成功",
		"addr", net.JoinHostPort(d.config.Host, strconv.Itoa(port)),
		"id", id.ShortString(),
		"ephemeral", d.config.Ephemeral)
	return nil
}

// Close 关闭 DHT
func (d *DHT) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	d.ctxCancel()

	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	d.wg.Wait()

	log.Info("DHT 已停止", "port", d.Port())
	return err
}

// ============================================================================
//                              访问器
// ============================================================================

// ID 返回本地节点 ID
func (d *DHT) ID() ID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// Host 返回本地地址
//
// 绑定在通配地址上时优先返回引导节点观测到的地址。
func (d *DHT) Host() string {
	if ip := net.ParseIP(d.config.Host); ip != nil && ip.IsUnspecified() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.observed != nil {
			return d.observed.Host
		}
	}
	return d.config.Host
}

// Port 返回本地 UDP 端口
func (d *DHT) Port() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port
}

// Addr 返回 host:port
func (d *DHT) Addr() string {
	return net.JoinHostPort(d.Host(), strconv.Itoa(d.Port()))
}

// Ephemeral 是否为临时节点
func (d *DHT) Ephemeral() bool {
	return d.config.Ephemeral
}

// Bootstrapped 是否已完成引导
func (d *DHT) Bootstrapped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bootstrapped
}

// Size 返回路由表节点数量
func (d *DHT) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nodes.len()
}

// Tick 返回当前 tick
func (d *DHT) Tick() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tick
}

// ToArray 按从旧到新的顺序返回路由表节点的副本
func (d *DHT) ToArray() []pkgif.DHTNode {
	d.mu.Lock()
	nodes := d.nodes.toArray()
	d.mu.Unlock()

	out := make([]pkgif.DHTNode, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// ============================================================================
//                              公共操作
// ============================================================================

// Bootstrap 向引导节点查询离自己最近的节点并逐个 ping
//
// 没有配置引导节点时视为网络中的第一个节点，直接完成引导。
func (d *DHT) Bootstrap(ctx context.Context) error {
	if len(d.config.Bootstrap) == 0 {
		d.mu.Lock()
		d.bootstrapped = true
		d.mu.Unlock()
		log.Debug("没有引导节点，作为首个节点运行")
		return nil
	}

	self := d.ID()
	var (
		found     []PeerAddr
		reachable int
	)
	for _, a := range d.config.Bootstrap {
		host, port, err := splitHostPort(a)
		if err != nil {
			continue
		}
		resp, err := d.request(ctx, host, port, &Message{Type: MessageFindNode, Target: self[:]})
		if err != nil {
			log.Warn("引导节点不可达", "addr", a, "error", err)
			continue
		}
		reachable++
		if resp.To != nil {
			d.mu.Lock()
			d.observed = resp.To
			d.mu.Unlock()
		}
		found = append(found, resp.Closer...)
	}
	if reachable == 0 {
		return ErrBootstrapFailed
	}

	d.pingAll(ctx, found)

	d.mu.Lock()
	d.bootstrapped = true
	size := d.nodes.len()
	d.mu.Unlock()

	log.Info("DHT 引导完成", "bootstrap", len(d.config.Bootstrap), "nodes", size)
	return nil
}

// Ping 探测一个节点
func (d *DHT) Ping(ctx context.Context, host string, port int) error {
	_, err := d.request(ctx, host, port, &Message{Type: MessagePing})
	return err
}

// FindNode 向指定节点查询离 target 最近的节点
func (d *DHT) FindNode(ctx context.Context, host string, port int, target ID) ([]PeerAddr, error) {
	resp, err := d.request(ctx, host, port, &Message{Type: MessageFindNode, Target: target[:]})
	if err != nil {
		return nil, err
	}
	return resp.Closer, nil
}

// Announce 向离 topic 最近的节点宣告一条记录
func (d *DHT) Announce(ctx context.Context, topic []byte, rec Record) error {
	target, ok := idFromBytes(topic)
	if !ok {
		return fmt.Errorf("%w: topic must be %d bytes", ErrInvalidRecord, IDSize)
	}
	if len(rec.PublicKey) == 0 {
		return fmt.Errorf("%w: empty public key", ErrInvalidRecord)
	}

	peers := d.nearest(target)
	if len(peers) == 0 {
		return ErrNoNodes
	}

	var accepted atomic.Int32
	var g errgroup.Group
	g.SetLimit(Alpha)
	for _, p := range peers {
		p := p
		g.Go(func() error {
			msg := &Message{Type: MessageAnnounce, Target: topic, Records: []Record{rec}}
			if _, err := d.request(ctx, p.Host, p.Port, msg); err != nil {
				log.Debug("宣告失败", "node", net.JoinHostPort(p.Host, strconv.Itoa(p.Port)), "error", err)
				return nil
			}
			accepted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if accepted.Load() == 0 {
		return ErrAnnounceFailed
	}
	log.Debug("宣告完成", "topic", hex.EncodeToString(topic)[:8], "accepted", accepted.Load())
	return nil
}

// Lookup 从离 topic 最近的节点收集宣告记录，按公钥去重
func (d *DHT) Lookup(ctx context.Context, topic []byte) ([]Record, error) {
	target, ok := idFromBytes(topic)
	if !ok {
		return nil, fmt.Errorf("%w: topic must be %d bytes", ErrInvalidRecord, IDSize)
	}

	peers := d.nearest(target)
	if len(peers) == 0 {
		return nil, ErrNoNodes
	}

	var (
		mu        sync.Mutex
		seen      = make(map[string]struct{})
		out       []Record
		responded int
	)
	merge := func(recs []Record) {
		for _, r := range recs {
			k := hex.EncodeToString(r.PublicKey)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}

	var g errgroup.Group
	g.SetLimit(Alpha)
	for _, p := range peers {
		p := p
		g.Go(func() error {
			resp, err := d.request(ctx, p.Host, p.Port, &Message{Type: MessageLookup, Target: topic})
			if err != nil {
				return nil
			}
			mu.Lock()
			responded++
			merge(resp.Records)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if responded == 0 {
		return nil, fmt.Errorf("%w: lookup", ErrTimeout)
	}
	return out, nil
}

// ============================================================================
//                              请求/响应
// ============================================================================

// request 发送请求并等待匹配 tid 的响应
func (d *DHT) request(ctx context.Context, host string, port int, msg *Message) (*Message, error) {
	if d.closed.Load() {
		return nil, ErrDHTClosed
	}
	addr, err := udpAddr(host, port)
	if err != nil {
		return nil, err
	}

	tid := d.nextTID.Add(1)
	msg.TID = tid
	ch := make(chan inbound, 1)

	d.mu.Lock()
	if d.conn == nil {
		d.mu.Unlock()
		return nil, ErrNotStarted
	}
	d.pending[tid] = pendingRequest{addr: addr.String(), ch: ch}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.pending, tid)
		d.mu.Unlock()
	}()

	if err := d.send(addr, msg); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.config.RequestTimeout)
	defer cancel()

	select {
	case in := <-ch:
		return in.msg, nil
	case <-d.ctx.Done():
		return nil, ErrDHTClosed
	case <-reqCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s", ErrTimeout, msg.Type, addr)
	}
}

// send 发送消息，持久节点附带自己的 ID
func (d *DHT) send(addr *net.UDPAddr, msg *Message) error {
	d.mu.Lock()
	conn := d.conn
	id := d.id
	d.mu.Unlock()

	if conn == nil {
		return ErrNotStarted
	}
	if !d.config.Ephemeral {
		msg.ID = id[:]
	}
	if _, err := conn.WriteToUDP(msg.Marshal(), addr); err != nil {
		return fmt.Errorf("dht: send %s to %s: %w", msg.Type, addr, err)
	}
	return nil
}

// readLoop 读取 UDP 数据包
func (d *DHT) readLoop(conn *net.UDPConn) {
	defer d.wg.Done()

	buf := make([]byte, maxPacketSize)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if d.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Debug("读取 UDP 失败", "error", err)
			continue
		}

		msg, err := UnmarshalMessage(buf[:n])
		if err != nil {
			log.Debug("丢弃无效消息", "from", from, "error", err)
			continue
		}
		d.onMessage(msg, from)
	}
}

// onMessage 处理一条消息
func (d *DHT) onMessage(msg *Message, from *net.UDPAddr) {
	d.observe(msg.ID, from)

	if msg.Type == MessageResponse {
		d.mu.Lock()
		p, ok := d.pending[msg.TID]
		d.mu.Unlock()
		if !ok || p.addr != from.String() {
			return
		}
		select {
		case p.ch <- inbound{msg: msg, from: from}:
		default:
		}
		return
	}

	d.handleRequest(msg, from)
}

// handleRequest 处理请求并回复
func (d *DHT) handleRequest(msg *Message, from *net.UDPAddr) {
	resp := &Message{
		Type: MessageResponse,
		TID:  msg.TID,
		To:   &PeerAddr{Host: hostOf(from), Port: from.Port},
	}

	switch msg.Type {
	case MessagePing:

	case MessageFindNode:
		target, ok := idFromBytes(msg.Target)
		if !ok {
			log.Debug("FIND_NODE 目标长度无效", "from", from)
			return
		}
		resp.Closer = d.closest(target, from)

	case MessageAnnounce:
		target, ok := idFromBytes(msg.Target)
		if !ok || len(msg.Records) != 1 || len(msg.Records[0].PublicKey) == 0 {
			log.Debug("ANNOUNCE 无效", "from", from)
			return
		}
		rec := msg.Records[0]
		if rec.Host == "" {
			rec.Host = hostOf(from)
		}
		d.records.Put(msg.Target, rec)
		resp.Closer = d.closest(target, from)

	case MessageLookup:
		target, ok := idFromBytes(msg.Target)
		if !ok {
			log.Debug("LOOKUP 目标长度无效", "from", from)
			return
		}
		resp.Records = d.records.Get(msg.Target, maxRecordsPerResponse)
		resp.Closer = d.closest(target, from)

	default:
		return
	}

	if err := d.send(from, resp); err != nil && !d.closed.Load() {
		log.Debug("回复失败", "to", from, "error", err)
	}
}

// ============================================================================
//                              路由表维护
// ============================================================================

// observe 收到带 ID 的消息时更新路由表
//
// 只接受 ID 与观测地址相符的节点，临时节点不带 ID，因此不会入表。
func (d *DHT) observe(rawID []byte, from *net.UDPAddr) {
	id, ok := idFromBytes(rawID)
	if !ok {
		return
	}
	host := hostOf(from)
	if NodeID(host, from.Port) != id {
		log.Debug("节点 ID 与地址不符", "host", host, "port", from.Port)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.table == nil {
		return
	}
	if n := d.nodes.get(id); n != nil {
		n.seen = d.tick
		n.downHints = 0
		d.nodes.moveToTail(n)
		d.table.Add(n)
		return
	}

	n := &Node{id: id, host: host, port: from.Port, added: d.tick, seen: d.tick}
	if d.table.Add(n) {
		d.nodes.add(n)
		log.Debug("节点加入路由表", "id", id.ShortString(), "host", host, "port", from.Port)
	}
}

// removeNodeLocked 移除节点，并把替换缓存中提升的节点挂到有序集合上
func (d *DHT) removeNodeLocked(n *Node) {
	d.nodes.remove(n)
	_, promoted := d.table.Remove(n.id)
	if promoted != nil {
		d.nodes.add(promoted)
	}
	log.Debug("节点移出路由表", "id", n.id.ShortString(), "downHints", n.downHints)
}

// closest 返回离 target 最近的节点地址，排除请求方
func (d *DHT) closest(target ID, exclude *net.UDPAddr) []PeerAddr {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.table == nil {
		return nil
	}
	exHost := hostOf(exclude)
	var out []PeerAddr
	for _, n := range d.table.NearestPeers(target, d.config.BucketSize+1) {
		if n.host == exHost && n.port == exclude.Port {
			continue
		}
		out = append(out, PeerAddr{ID: n.ID(), Host: n.host, Port: n.port})
		if len(out) == d.config.BucketSize {
			break
		}
	}
	return out
}

// nearest 返回本地路由表中离 target 最近的 K 个节点
func (d *DHT) nearest(target ID) []PeerAddr {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.table == nil {
		return nil
	}
	nodes := d.table.NearestPeers(target, d.config.BucketSize)
	out := make([]PeerAddr, len(nodes))
	for i, n := range nodes {
		out[i] = PeerAddr{ID: n.ID(), Host: n.host, Port: n.port}
	}
	return out
}

// pingAll 并发 ping 一组节点，响应中携带的 ID 会让它们入表
func (d *DHT) pingAll(ctx context.Context, peers []PeerAddr) {
	d.mu.Lock()
	self := d.id
	d.mu.Unlock()

	seen := make(map[string]struct{}, len(peers))
	var g errgroup.Group
	g.SetLimit(Alpha)
	for _, p := range peers {
		if id, ok := idFromBytes(p.ID); ok && id == self {
			continue
		}
		key := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		p := p
		g.Go(func() error {
			if err := d.Ping(ctx, p.Host, p.Port); err != nil {
				log.Debug("ping 失败", "node", key, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// tickLoop 每个 tick ping 一个最久没有动静的节点
func (d *DHT) tickLoop() {
	defer d.wg.Done()

	ticker := d.config.Clock.Ticker(d.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.onTick()
		}
	}
}

func (d *DHT) onTick() {
	d.mu.Lock()
	d.tick++
	n := d.nodes.oldest()
	if n == nil {
		d.mu.Unlock()
		return
	}
	// 先挪到尾部，下一个 tick 轮到下一个节点
	d.nodes.moveToTail(n)
	id, host, port := n.id, n.host, n.port
	d.mu.Unlock()

	err := d.Ping(d.ctx, host, port)
	if d.closed.Load() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	node := d.nodes.get(id)
	if node == nil {
		return
	}
	if err == nil {
		node.pinged = d.tick
		node.seen = d.tick
		node.downHints = 0
		return
	}
	node.downHints++
	if node.downHints >= d.config.MaxDownHints {
		d.removeNodeLocked(node)
	}
}
