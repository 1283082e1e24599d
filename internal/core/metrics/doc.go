// Package metrics 把 swarm 聚合指标导出为 Prometheus 格式
//
// Collector 在每次抓取时调用一次 Metrics()，按 types.MetricSeriesTable
// 生成常量指标。/swarm/summary 与 /metrics 共用同一个快照与同一张命名表。
//
// Registry 额外注册 Go 运行时与进程指标。
//
// 快照计算失败（例如注册表不一致）时，每个序列都返回 InvalidMetric，
// promhttp 以 500 响应本次抓取。
package metrics
