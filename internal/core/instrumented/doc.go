// Package instrumented 为 swarm 提供连接统计与关联视图
//
// Swarm 包装一个 interfaces.Swarm 及其 DHT：
//
//   - 构造时订阅一次连接建立通知，为每条新连接注册一次性关闭回调，
//     维护 connectionsOpened / connectionsClosed 两个累计计数
//   - 其余视图（PeerInfos、DHTNodes、Metrics）每次读取时重新计算，
//     不缓存，代价 O(连接数 + 路由表节点数)
//
// PeerInfos 从 Swarm.Snapshot 的同一份快照中取连接与注册表，
// 打开的连接缺少注册表条目时返回 ErrInvariantViolation，不会静默跳过。
//
// DHT 节点只以 types.DHTNodeInfo 逐字段投影输出，路由表内部链接不会泄露。
package instrumented
