// Package introspect 提供 swarm 自省 HTTP 服务
//
// 服务默认绑定到 127.0.0.1，所有端点均为只读，每次请求重新计算视图。
//
// 端点：
//   - GET /swarm/peerinfo             - 连接节点列表，可按 host、port 过滤
//   - GET /swarm/peerinfo/{publicKey} - 单个连接节点，不存在返回 404
//   - GET /swarm/dhtnode              - DHT 路由表节点
//   - GET /swarm/summary              - 聚合指标
//   - GET /metrics                    - Prometheus 指标（启用时）
//   - GET /health                     - 健康检查
package introspect
