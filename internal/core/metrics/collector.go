package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-swarmscope/internal/util/logger"
	"github.com/dep2p/go-swarmscope/pkg/types"
)

var log = logger.Logger("core/metrics")

// Source 指标快照来源
type Source interface {
	Metrics() (types.MetricsSnapshot, error)
}

// Collector 基于快照的 Prometheus 收集器
type Collector struct {
	src   Source
	descs []*prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector 创建收集器
func NewCollector(src Source) *Collector {
	descs := make([]*prometheus.Desc, len(types.MetricSeriesTable))
	for i, s := range types.MetricSeriesTable {
		descs[i] = prometheus.NewDesc(s.Name, s.Help, nil, nil)
	}
	return &Collector{src: src, descs: descs}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap, err := c.src.Metrics()
	if err != nil {
		log.Error("计算指标快照失败", "error", err)
		for _, d := range c.descs {
			ch <- prometheus.NewInvalidMetric(d, err)
		}
		return
	}

	for i, s := range types.MetricSeriesTable {
		ch <- prometheus.MustNewConstMetric(c.descs[i], valueType(s.Kind), s.Value(snap))
	}
}

func valueType(k types.MetricKind) prometheus.ValueType {
	if k == types.MetricCounter {
		return prometheus.CounterValue
	}
	return prometheus.GaugeValue
}
