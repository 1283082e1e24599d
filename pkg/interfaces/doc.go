// Package interfaces 定义 swarmscope 的公共接口
//
// 一个接口文件对应一个实现目录：
//   - swarm.go - 连接群管理，对应 internal/core/swarm/
//   - dht.go   - DHT 路由表，对应 internal/discovery/dht/
//
// 自省层（internal/core/instrumented、internal/core/introspect）只依赖这里的接口，
// 测试中可以用 tests/mocks 替换真实实现。
package interfaces
