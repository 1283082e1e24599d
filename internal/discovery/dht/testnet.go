package dht

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/multierr"
)

// Testnet 本地测试网络
//
// 一个临时引导节点加若干持久节点，全部监听在 127.0.0.1 上。
// 引导节点不携带 ID，所以不会出现在任何路由表中。
type Testnet struct {
	// Bootstrapper 引导节点
	Bootstrapper *DHT

	// Nodes 持久节点
	Nodes []*DHT
}

// NewTestnet 创建 size 个节点的测试网络（含引导节点）
func NewTestnet(ctx context.Context, size int, opts ...ConfigOption) (tn *Testnet, err error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: testnet size must be at least 1", ErrInvalidConfig)
	}

	tn = &Testnet{}
	defer func() {
		if err != nil {
			_ = tn.Close()
		}
	}()

	bootOpts := append([]ConfigOption{WithHost("127.0.0.1"), WithEphemeral(true)}, opts...)
	tn.Bootstrapper, err = New(nil, bootOpts...)
	if err != nil {
		return nil, err
	}
	if err = tn.Bootstrapper.Start(ctx); err != nil {
		return nil, err
	}
	if err = tn.Bootstrapper.Bootstrap(ctx); err != nil {
		return nil, err
	}

	for i := 1; i < size; i++ {
		nodeOpts := append([]ConfigOption{
			WithHost("127.0.0.1"),
			WithEphemeral(false),
			WithBootstrap(tn.BootstrapAddrs()...),
		}, opts...)
		node, err := New(nil, nodeOpts...)
		if err != nil {
			return nil, err
		}
		tn.Nodes = append(tn.Nodes, node)
		if err := node.Start(ctx); err != nil {
			return nil, err
		}
		if err := node.Bootstrap(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap testnet node %d: %w", i, err)
		}
	}

	log.Info("测试网络已就绪", "size", size, "bootstrap", tn.BootstrapAddrs()[0])
	return tn, nil
}

// BootstrapAddrs 返回引导节点地址
func (tn *Testnet) BootstrapAddrs() []string {
	if tn.Bootstrapper == nil {
		return nil
	}
	return []string{net.JoinHostPort("127.0.0.1", strconv.Itoa(tn.Bootstrapper.Port()))}
}

// Size 返回节点总数（含引导节点）
func (tn *Testnet) Size() int {
	n := len(tn.Nodes)
	if tn.Bootstrapper != nil {
		n++
	}
	return n
}

// Close 关闭所有节点
func (tn *Testnet) Close() error {
	var err error
	for _, n := range tn.Nodes {
		err = multierr.Append(err, n.Close())
	}
	if tn.Bootstrapper != nil {
		err = multierr.Append(err, tn.Bootstrapper.Close())
	}
	return err
}
