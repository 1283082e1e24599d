package swarmscope

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-swarmscope/config"
	"github.com/dep2p/go-swarmscope/internal/core/instrumented"
	"github.com/dep2p/go-swarmscope/internal/core/introspect"
	"github.com/dep2p/go-swarmscope/internal/core/swarm"
	"github.com/dep2p/go-swarmscope/internal/discovery/dht"
	"github.com/dep2p/go-swarmscope/internal/util/logger"
)

var log = logger.Logger("swarmscope")

const (
	// startTimeout Fx 启动超时（含 DHT 引导与主题发现）
	startTimeout = 60 * time.Second

	// stopTimeout Fx 停止超时
	stopTimeout = 15 * time.Second
)

// Node 装配好的 swarm 节点
type Node struct {
	app *fx.App
	cfg *config.Config

	dht          *dht.DHT
	swarm        *swarm.Swarm
	instrumented *instrumented.Swarm
	introspect   *introspect.Server

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建节点（不启动）
//
// cfg 为 nil 时使用默认配置。连接计数从这里开始。
func New(cfg *config.Config, opts ...Option) (*Node, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	n := &Node{cfg: cfg}
	app, err := buildFxApp(cfg, o, n)
	if err != nil {
		return nil, fmt.Errorf("build node: %w", err)
	}
	n.app = app
	return n, nil
}

// Start 创建并启动节点
func Start(ctx context.Context, cfg *config.Config, opts ...Option) (*Node, error) {
	n, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := n.Start(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

// Start 启动节点
//
// 依次启动 DHT（含引导）、swarm（加入配置的主题）与自省服务。
// 节点只能启动一次。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		log.Error("节点启动失败", "error", err)
		n.closed = true
		return fmt.Errorf("start node: %w", err)
	}
	n.started = true

	log.Info("节点已启动",
		"publicKey", logger.ShortKey(n.swarm.PublicKey()),
		"dht", fmt.Sprintf("%s:%d", n.dht.Host(), n.dht.Port()),
		"introspect", n.IntrospectAddr())
	return nil
}

// Stop 停止节点，停止后不可再启动
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	if !n.started {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	if err := n.app.Stop(stopCtx); err != nil {
		log.Error("节点停止失败", "error", err)
		return fmt.Errorf("stop node: %w", err)
	}
	log.Info("节点已停止")
	return nil
}

// Close 停止节点
func (n *Node) Close() error {
	return n.Stop(context.Background())
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// Config 返回节点配置
func (n *Node) Config() *config.Config {
	return n.cfg
}

// DHT 返回 DHT 节点
func (n *Node) DHT() *dht.DHT {
	return n.dht
}

// Swarm 返回底层 swarm
func (n *Node) Swarm() *swarm.Swarm {
	return n.swarm
}

// Instrumented 返回带统计的 swarm 包装
func (n *Node) Instrumented() *instrumented.Swarm {
	return n.instrumented
}

// Introspect 返回自省服务，未启用时为 nil
func (n *Node) Introspect() *introspect.Server {
	return n.introspect
}

// IntrospectAddr 返回自省服务监听地址，未启用时为空
func (n *Node) IntrospectAddr() string {
	if n.introspect == nil {
		return ""
	}
	return n.introspect.Addr()
}

// Started 节点是否在运行
func (n *Node) Started() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started && !n.closed
}
