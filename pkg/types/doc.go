// Package types 定义 swarmscope 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据，
// 其中 PeerInfo、DHTNodeInfo、MetricsSnapshot 是对外输出（JSON）的安全投影。
//
// # 文件组织
//
//   - peer.go    - Priority, PeerRecord, PeerInfo
//   - dht.go     - DHTNodeInfo
//   - metrics.go - MetricsSnapshot, MetricSeries
package types
