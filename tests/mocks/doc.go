// Package mocks 提供统一的测试 Mock 实现
//
// # 核心 Mock
//
//   - MockSwarm: 模拟 interfaces.Swarm，可手动触发连接建立与关闭
//   - MockConnection: 模拟 interfaces.Connection，记录 OnClose 回调
//   - MockDHT / MockDHTNode: 模拟路由表视图
//
// # 设计原则
//
// 1. 函数式注入: 每个 Mock 都支持通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 关键 Mock 记录调用次数，便于验证测试行为
//
// # 使用示例
//
//	sw := mocks.NewMockSwarm(pub)
//	conn := mocks.NewMockConnection(remotePub, "10.0.0.2", 4001, 5001)
//	sw.Connect(conn)    // 写入注册表并触发 OnConnection
//	sw.Disconnect(conn) // 移出连接集合并触发 OnClose
package mocks
