// Package swarmscope 为 P2P swarm 提供连接统计与自省服务
//
// 节点由以下组件装配而成（fx）：
//
//	┌──────────────────────────────────────────────┐
//	│  introspect   HTTP 只读视图 + /metrics        │
//	├──────────────────────────────────────────────┤
//	│  metrics      Prometheus 导出                 │
//	│  instrumented 连接计数与关联视图              │
//	├──────────────────────────────────────────────┤
//	│  swarm        加密 TCP 连接、主题发现          │
//	│  dht          UDP 路由表、宣告与查找           │
//	└──────────────────────────────────────────────┘
//
// # 快速开始
//
//	cfg := config.NewConfig()
//	cfg.Swarm.Topics = []string{hex.EncodeToString(topic)}
//
//	node, err := swarmscope.Start(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer node.Close()
//
//	fmt.Println("自省地址:", node.IntrospectAddr())
//
// 计数在节点构造时即开始，与自省服务是否启用无关。
package swarmscope
