// Package dht 实现 swarm 使用的轻量 Kademlia DHT
//
// # 模块概述
//
// dht 通过 UDP 在节点之间交换 PING / FIND_NODE / ANNOUNCE / LOOKUP 消息，
// 为 swarm 提供 topic 宣告与查找能力，并维护一张可供内省的路由表。
//
// # 核心功能
//
// 1. 节点身份
//   - NodeID(host, port) = BLAKE2b-256(IPv4 ‖ uint16le(port))
//   - 远端声明的 ID 必须与观测到的地址一致，否则不入表
//
// 2. 路由表
//   - 256 个 K-Bucket（K=20），XOR 距离度量，替换缓存
//   - 所有入表节点同时挂在一个有序集合上（prev/next 链接），
//     最旧的节点位于表头，由刷新循环逐个 ping
//   - 每个节点记录 added / pinged / seen 三个 tick 以及 downHints
//
// 3. 宣告记录
//   - ANNOUNCE 写入带 TTL 的 LRU（hashicorp/golang-lru expirable）
//   - LOOKUP 从最近的 K 个节点收集记录并按公钥去重
//
// 4. 临时节点
//   - Ephemeral 节点不在消息中携带自己的 ID，因此永远不会进入他人的路由表
//   - swarm 内部的 DHT 默认是临时客户端
//
// # 内省
//
// ToArray 返回节点的副本，副本不含链接字段；外部只能通过 pkg/interfaces.DHTNode
// 的访问器读取节点属性。
//
// # 使用示例
//
//	cfg := dht.DefaultConfig()
//	cfg.Bootstrap = []string{"127.0.0.1:49737"}
//
//	d, err := dht.New(cfg)
//	if err != nil { ... }
//	if err := d.Start(ctx); err != nil { ... }
//	defer d.Close()
//
//	err = d.Bootstrap(ctx)
//	nodes := d.ToArray()
package dht
