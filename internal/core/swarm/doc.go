// Package swarm 实现主题驱动的连接群
//
// Swarm 在 DHT 上按主题宣告自己或查找其他节点，
// 通过 TCP + Noise XX 与对端建立加密连接，并维护两份状态：
//
//   - 连接集合：当前打开的连接，每个远端公钥至多一条
//   - 节点注册表：每个与本地交互过的公钥对应一条 types.PeerRecord
//
// 两者由同一把锁保护，Snapshot 返回一致视图：
// 集合中的每条连接在注册表中都有记录。
//
// TCP 监听优先使用与 DHT UDP 端口相同的端口号，
// 这样远端可以用 (host, port) 推算出本节点的 DHT 节点 ID。
//
// 使用示例：
//
//	s, err := swarm.Open(ctx, nil, dhtCfg, kp)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	s.OnConnection(func(c interfaces.Connection) { ... })
//	_ = s.Join(topic, swarm.JoinOptions{Server: true, Client: true})
//	_ = s.Flush(ctx)
package swarm
