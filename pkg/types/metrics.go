package types

// MetricsSnapshot 聚合指标快照
//
// 除两个累计计数外，其余字段在每次读取时重新计算。
type MetricsSnapshot struct {
	NrSwarmPeers      int    `json:"nrSwarmPeers"`
	NrSwarmHosts      int    `json:"nrSwarmHosts"`
	NrDHTPeers        int    `json:"nrDhtPeers"`
	NrDHTHosts        int    `json:"nrDhtHosts"`
	ConnectionsOpened uint64 `json:"connectionsOpened"`
	ConnectionsClosed uint64 `json:"connectionsClosed"`
}

// MetricKind 指标类型
type MetricKind int

const (
	// MetricGauge 瞬时值
	MetricGauge MetricKind = iota
	// MetricCounter 单调累计值
	MetricCounter
)

// MetricSeries 快照字段到导出序列名的映射
type MetricSeries struct {
	// Key JSON 字段名
	Key string
	// Name Prometheus 序列名
	Name string
	Help string
	Kind MetricKind
	// Value 从快照中取值
	Value func(MetricsSnapshot) float64
}

// MetricSeriesTable 唯一的命名表
//
// /swarm/summary 与 /metrics 都从同一个 MetricsSnapshot 导出，
// 名称只在这里定义一次。
var MetricSeriesTable = []MetricSeries{
	{
		Key:   "nrSwarmPeers",
		Name:  "swarmscope_nr_swarm_peers",
		Help:  "Number of peers with an open swarm connection",
		Kind:  MetricGauge,
		Value: func(s MetricsSnapshot) float64 { return float64(s.NrSwarmPeers) },
	},
	{
		Key:   "nrSwarmHosts",
		Name:  "swarmscope_nr_swarm_hosts",
		Help:  "Number of distinct remote hosts among swarm connections",
		Kind:  MetricGauge,
		Value: func(s MetricsSnapshot) float64 { return float64(s.NrSwarmHosts) },
	},
	{
		Key:   "nrDhtPeers",
		Name:  "swarmscope_nr_dht_peers",
		Help:  "Number of nodes in the DHT routing table",
		Kind:  MetricGauge,
		Value: func(s MetricsSnapshot) float64 { return float64(s.NrDHTPeers) },
	},
	{
		Key:   "nrDhtHosts",
		Name:  "swarmscope_nr_dht_hosts",
		Help:  "Number of distinct hosts in the DHT routing table",
		Kind:  MetricGauge,
		Value: func(s MetricsSnapshot) float64 { return float64(s.NrDHTHosts) },
	},
	{
		Key:   "connectionsOpened",
		Name:  "swarmscope_swarm_connections_opened_total",
		Help:  "Swarm connections opened since process start",
		Kind:  MetricCounter,
		Value: func(s MetricsSnapshot) float64 { return float64(s.ConnectionsOpened) },
	},
	{
		Key:   "connectionsClosed",
		Name:  "swarmscope_swarm_connections_closed_total",
		Help:  "Swarm connections closed since process start",
		Kind:  MetricCounter,
		Value: func(s MetricsSnapshot) float64 { return float64(s.ConnectionsClosed) },
	},
}
