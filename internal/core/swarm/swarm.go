package swarm

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-swarmscope/internal/discovery/dht"
	"github.com/dep2p/go-swarmscope/internal/util/logger"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
	"github.com/dep2p/go-swarmscope/pkg/types"
)

var log = logger.Logger("core/swarm")

// TopicSize 主题（discovery key）长度
const TopicSize = 32

// JoinOptions 加入主题的方式
type JoinOptions struct {
	// Server 在 DHT 上宣告自己，等待他人连接
	Server bool

	// Client 查找主题下的节点并主动连接
	Client bool
}

// joinedTopic 已加入的主题
type joinedTopic struct {
	topic []byte
	opts  JoinOptions
}

// Swarm 连接群
type Swarm struct {
	config  *Config
	keyPair KeyPair
	dht     *dht.DHT
	ownsDHT bool

	listener net.Listener
	port     int

	// mu 同时保护连接集合与节点注册表
	mu           sync.Mutex
	conns        map[string]*Conn // 十六进制公钥 -> 连接
	peers        map[string]*types.PeerRecord
	dialing      map[string]struct{}
	topics       map[string]joinedTopic
	pending      map[uint64]chan struct{}
	nextTask     uint64
	onConnection []func(pkgif.Connection)

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool
}

var _ pkgif.Swarm = (*Swarm)(nil)

// New 创建 Swarm
//
// d 必须在 Start 之前启动，swarm 会尝试复用它的端口号。
func New(cfg *Config, d *dht.DHT, kp KeyPair, opts ...ConfigOption) (*Swarm, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		c := *cfg
		cfg = &c
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: dht is required", ErrInvalidConfig)
	}
	if len(kp.Public) != 32 || len(kp.Private) != 32 {
		return nil, ErrInvalidKey
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Swarm{
		config:  cfg,
		keyPair: kp,
		dht:     d,
		conns:   make(map[string]*Conn),
		peers:   make(map[string]*types.PeerRecord),
		dialing: make(map[string]struct{}),
		topics:  make(map[string]joinedTopic),
		pending: make(map[uint64]chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Open 创建一个自带 DHT 的 Swarm 并完成启动与引导
//
// 返回的 Swarm 在 Close 时一并关闭 DHT。引导失败只记录日志。
func Open(ctx context.Context, cfg *Config, dhtCfg *dht.Config, kp KeyPair) (*Swarm, error) {
	d, err := dht.New(dhtCfg)
	if err != nil {
		return nil, err
	}
	if err := d.Start(ctx); err != nil {
		return nil, err
	}
	if err := d.Bootstrap(ctx); err != nil {
		log.Warn("DHT 引导失败", "error", err)
	}

	s, err := New(cfg, d, kp)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	s.ownsDHT = true

	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// ============================================================================
// 生命周期
// ============================================================================

// Start 开始监听并加入配置中的主题
func (s *Swarm) Start(_ context.Context) error {
	if s.closed.Load() {
		return ErrSwarmClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	port := s.config.Port
	if port == 0 {
		port = s.dht.Port()
	}
	ln, err := net.Listen("tcp4", net.JoinHostPort(s.config.Host, strconv.Itoa(port)))
	if err != nil && s.config.Port == 0 && port != 0 {
		log.Debug("DHT 端口不可用，改用随机端口", "port", port, "error", err)
		ln, err = net.Listen("tcp4", net.JoinHostPort(s.config.Host, "0"))
	}
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("%w: %v", ErrListenFailed, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.wg.Add(2)
	s.mu.Unlock()

	go s.acceptLoop(ln)
	go s.refreshLoop()

	log.Info("swarm 已启动",
		"publicKey", s.keyPair.String(),
		"addr", ln.Addr().String())

	for _, topic := range s.config.Topics {
		if err := s.Join(topic, JoinOptions{Server: s.config.Server, Client: s.config.Client}); err != nil {
			return err
		}
	}
	return nil
}

// Close 关闭监听与所有连接
func (s *Swarm) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()

	s.mu.Lock()
	ln := s.listener
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var errs error
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierr.Append(errs, err)
		}
	}
	for _, c := range conns {
		if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierr.Append(errs, err)
		}
	}

	s.wg.Wait()

	if s.ownsDHT {
		errs = multierr.Append(errs, s.dht.Close())
	}

	log.Info("swarm 已关闭")
	return errs
}

// ============================================================================
// 访问器
// ============================================================================

// PublicKey 返回本地公钥
func (s *Swarm) PublicKey() []byte {
	return append([]byte(nil), s.keyPair.Public...)
}

// Port 返回 TCP 监听端口，未启动时为 0
func (s *Swarm) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Addr 返回 TCP 监听地址
func (s *Swarm) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.Port()))
}

// DHT 返回 Swarm 使用的 DHT
func (s *Swarm) DHT() pkgif.DHT {
	return s.dht
}

// Connections 返回当前打开的连接（按远端公钥排序）
func (s *Swarm) Connections() []pkgif.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionsLocked()
}

func (s *Swarm) connectionsLocked() []pkgif.Connection {
	keys := make([]string, 0, len(s.conns))
	for k := range s.conns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]pkgif.Connection, len(keys))
	for i, k := range keys {
		out[i] = s.conns[k]
	}
	return out
}

// Peers 返回节点注册表快照
func (s *Swarm) Peers() map[string]types.PeerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peersLocked()
}

func (s *Swarm) peersLocked() map[string]types.PeerRecord {
	out := make(map[string]types.PeerRecord, len(s.peers))
	for k, rec := range s.peers {
		out[k] = rec.Clone()
	}
	return out
}

// Snapshot 在同一把锁下采集连接与注册表
func (s *Swarm) Snapshot() pkgif.SwarmSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pkgif.SwarmSnapshot{
		Connections: s.connectionsLocked(),
		Peers:       s.peersLocked(),
	}
}

// OnConnection 注册连接建立回调
//
// 回调在完成握手的 goroutine 中同步执行，不要在回调中阻塞。
func (s *Swarm) OnConnection(fn func(pkgif.Connection)) {
	s.mu.Lock()
	s.onConnection = append(s.onConnection, fn)
	s.mu.Unlock()
}

// ============================================================================
// 主题
// ============================================================================

// Join 加入主题
//
// 宣告与查找在后台进行，Flush 等待它们完成。
// Server 与 Client 都为 false 时按两者都为 true 处理。
func (s *Swarm) Join(topic []byte, opts JoinOptions) error {
	if len(topic) != TopicSize {
		return ErrInvalidTopic
	}
	if !opts.Server && !opts.Client {
		opts = JoinOptions{Server: true, Client: true}
	}
	if !s.started.Load() {
		return ErrNotStarted
	}

	topic = append([]byte(nil), topic...)

	s.mu.Lock()
	s.topics[hex.EncodeToString(topic)] = joinedTopic{topic: topic, opts: opts}
	s.mu.Unlock()

	log.Debug("加入主题",
		"topic", logger.ShortKey(topic),
		"server", opts.Server,
		"client", opts.Client)

	return s.startDiscovery(topic, opts)
}

// Leave 离开主题，不再重新宣告与查找
func (s *Swarm) Leave(topic []byte) {
	s.mu.Lock()
	delete(s.topics, hex.EncodeToString(topic))
	s.mu.Unlock()
}

// Topics 返回已加入的主题
func (s *Swarm) Topics() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, 0, len(s.topics))
	for _, jt := range s.topics {
		out = append(out, append([]byte(nil), jt.topic...))
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out
}

// Flush 等待调用之前开始的所有发现任务完成
func (s *Swarm) Flush(ctx context.Context) error {
	s.mu.Lock()
	waits := make([]chan struct{}, 0, len(s.pending))
	for _, ch := range s.pending {
		waits = append(waits, ch)
	}
	s.mu.Unlock()

	for _, ch := range waits {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// startDiscovery 在后台执行一次宣告/查找任务
func (s *Swarm) startDiscovery(topic []byte, opts JoinOptions) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrSwarmClosed
	}
	id := s.nextTask
	s.nextTask++
	done := make(chan struct{})
	s.pending[id] = done
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.pending, id)
			s.mu.Unlock()
			close(done)
		}()
		s.discover(s.ctx, topic, opts)
	}()
	return nil
}

// discover 宣告自己并/或查找连接主题下的节点
func (s *Swarm) discover(ctx context.Context, topic []byte, opts JoinOptions) {
	if opts.Server {
		rec := dht.Record{PublicKey: s.keyPair.Public, Port: s.Port()}
		if err := s.dht.Announce(ctx, topic, rec); err != nil {
			log.Warn("主题宣告失败", "topic", logger.ShortKey(topic), "error", err)
		}
	}
	if !opts.Client {
		return
	}

	recs, err := s.dht.Lookup(ctx, topic)
	if err != nil {
		log.Warn("主题查找失败", "topic", logger.ShortKey(topic), "error", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(s.config.MaxParallelDials)
	for _, rec := range recs {
		if bytes.Equal(rec.PublicKey, s.keyPair.Public) {
			continue
		}
		if !s.notePeerTopic(rec.PublicKey, topic) {
			continue
		}
		rec := rec
		g.Go(func() error {
			defer s.doneDialing(rec.PublicKey)
			if _, err := s.dial(ctx, rec.Host, rec.Port, rec.PublicKey); err != nil {
				log.Debug("拨号失败",
					"peer", logger.ShortKey(rec.PublicKey),
					"addr", net.JoinHostPort(rec.Host, strconv.Itoa(rec.Port)),
					"error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// notePeerTopic 在注册表中记下节点所在主题，返回是否需要拨号
func (s *Swarm) notePeerTopic(pub, topic []byte) bool {
	k := hex.EncodeToString(pub)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.peers[k]
	if rec == nil {
		rec = &types.PeerRecord{
			PublicKey: append([]byte(nil), pub...),
			Priority:  types.PriorityNormal,
			Client:    true,
		}
		s.peers[k] = rec
	}
	if !rec.HasTopic(topic) {
		rec.Topics = append(rec.Topics, append([]byte(nil), topic...))
	}

	if rec.Banned {
		return false
	}
	if _, ok := s.conns[k]; ok {
		return false
	}
	if _, ok := s.dialing[k]; ok {
		return false
	}
	s.dialing[k] = struct{}{}
	return true
}

func (s *Swarm) doneDialing(pub []byte) {
	s.mu.Lock()
	delete(s.dialing, hex.EncodeToString(pub))
	s.mu.Unlock()
}

// refreshLoop 周期性重新宣告与查找已加入的主题
func (s *Swarm) refreshLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.AnnounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			topics := make([]joinedTopic, 0, len(s.topics))
			for _, jt := range s.topics {
				topics = append(topics, jt)
			}
			s.mu.Unlock()

			for _, jt := range topics {
				if err := s.startDiscovery(jt.topic, jt.opts); err != nil {
					return
				}
			}
		}
	}
}

// ============================================================================
// 拨号与接受
// ============================================================================

// Dial 直接连接指定地址
func (s *Swarm) Dial(ctx context.Context, host string, port int) (*Conn, error) {
	return s.dial(ctx, host, port, nil)
}

// dial 拨号并握手，expected 非空时校验远端公钥
func (s *Swarm) dial(ctx context.Context, host string, port int, expected []byte) (*Conn, error) {
	if s.closed.Load() {
		return nil, ErrSwarmClosed
	}
	if !s.started.Load() {
		return nil, ErrNotStarted
	}

	d := net.Dialer{Timeout: s.config.DialTimeout}
	raw, err := d.DialContext(ctx, "tcp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c, err := s.upgrade(raw, true)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	if expected != nil && !bytes.Equal(c.remoteKey, expected) {
		_ = raw.Close()
		return nil, ErrKeyMismatch
	}
	if err := s.addConn(c); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return c, nil
}

// upgrade 执行握手并构造连接
func (s *Swarm) upgrade(raw net.Conn, initiator bool) (*Conn, error) {
	hs, err := performHandshake(raw, s.keyPair, initiator, s.config.HandshakeTimeout)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(hs.remoteStatic, s.keyPair.Public) {
		return nil, ErrSelfConnection
	}
	return newConn(raw, hs, initiator), nil
}

// acceptLoop 接受入站连接
func (s *Swarm) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Debug("接受连接失败", "error", err)
			continue
		}

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			_ = raw.Close()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.acceptConn(raw)
	}
}

// acceptConn 处理一条入站连接
func (s *Swarm) acceptConn(raw net.Conn) {
	defer s.wg.Done()

	c, err := s.upgrade(raw, false)
	if err != nil {
		_ = raw.Close()
		log.Debug("入站握手失败", "remote", raw.RemoteAddr().String(), "error", err)
		return
	}
	if err := s.addConn(c); err != nil {
		_ = raw.Close()
		log.Debug("拒绝入站连接", "peer", logger.ShortKey(c.remoteKey), "error", err)
	}
}

// ============================================================================
// 连接集合
// ============================================================================

// addConn 把握手完成的连接加入集合并通知回调
//
// 注册表条目与连接在同一把锁下写入。
func (s *Swarm) addConn(c *Conn) error {
	k := hex.EncodeToString(c.remoteKey)

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrSwarmClosed
	}
	rec := s.peers[k]
	if rec != nil && rec.Banned {
		s.mu.Unlock()
		return ErrPeerBanned
	}

	var replaced *Conn
	if old := s.conns[k]; old != nil {
		if !s.preferNew(old, c) {
			s.mu.Unlock()
			return ErrDuplicateConnection
		}
		replaced = old
	} else if len(s.conns) >= s.config.MaxPeers {
		s.mu.Unlock()
		return ErrTooManyPeers
	}

	if rec == nil {
		rec = &types.PeerRecord{
			PublicKey: append([]byte(nil), c.remoteKey...),
			Priority:  types.PriorityNormal,
		}
		s.peers[k] = rec
	}
	rec.Client = c.initiator
	s.conns[k] = c
	c.setOnClosed(s.removeConn)

	callbacks := make([]func(pkgif.Connection), len(s.onConnection))
	copy(callbacks, s.onConnection)
	s.wg.Add(1)
	s.mu.Unlock()

	if replaced != nil {
		_ = replaced.Close()
	}

	log.Debug("连接已建立",
		"peer", logger.ShortKey(c.remoteKey),
		"remote", net.JoinHostPort(c.remoteHost, strconv.Itoa(c.remotePort)),
		"initiator", c.initiator)

	for _, fn := range callbacks {
		fn(c)
	}

	go func() {
		defer s.wg.Done()
		c.readLoop()
	}()
	return nil
}

// preferNew 与同一节点存在连接时，决定是否用新连接替换
//
// 方向相同时保留新的；方向不同时双方都保留由公钥较小一方发起的那条。
func (s *Swarm) preferNew(old, c *Conn) bool {
	if old.initiator == c.initiator {
		return true
	}
	localSmaller := bytes.Compare(s.keyPair.Public, c.remoteKey) < 0
	return c.initiator == localSmaller
}

// removeConn 连接关闭后从集合移除
//
// 没有主题且未被封禁的注册表条目随连接一起删除。
func (s *Swarm) removeConn(c *Conn) {
	k := hex.EncodeToString(c.remoteKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns[k] != c {
		return
	}
	delete(s.conns, k)

	if rec := s.peers[k]; rec != nil && !rec.Banned && len(rec.Topics) == 0 {
		delete(s.peers, k)
	}
	log.Debug("连接已关闭", "peer", logger.ShortKey(c.remoteKey))
}

// Ban 封禁节点并断开现有连接
func (s *Swarm) Ban(pub []byte) {
	k := hex.EncodeToString(pub)

	s.mu.Lock()
	rec := s.peers[k]
	if rec == nil {
		rec = &types.PeerRecord{
			PublicKey: append([]byte(nil), pub...),
			Priority:  types.PriorityNormal,
		}
		s.peers[k] = rec
	}
	rec.Banned = true
	c := s.conns[k]
	s.mu.Unlock()

	log.Info("节点已封禁", "peer", logger.ShortKey(pub))
	if c != nil {
		_ = c.Close()
	}
}
