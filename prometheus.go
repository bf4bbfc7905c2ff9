package celltrack

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector with Prometheus metrics.
type PrometheusCollector struct {
	changes         *prometheus.CounterVec
	rebuilds        prometheus.Counter
	rebuildLatency  prometheus.Histogram
	lastRebuildSize prometheus.Gauge
	queryLatency    *prometheus.HistogramVec
}

var _ MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &PrometheusCollector{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "celltrack_graph_changes_total",
			Help: "Graph changes by kind",
		}, []string{"kind"}),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "celltrack_index_rebuilds_total",
			Help: "Per-timepoint spatial index rebuilds",
		}),
		rebuildLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "celltrack_index_rebuild_duration_seconds",
			Help:    "Latency of spatial index rebuilds",
			Buckets: prometheus.DefBuckets,
		}),
		lastRebuildSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "celltrack_index_last_rebuild_size",
			Help: "Number of vertices in the most recently rebuilt index",
		}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "celltrack_query_duration_seconds",
			Help:    "Latency of spatial queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		p.changes, p.rebuilds, p.rebuildLatency, p.lastRebuildSize, p.queryLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PrometheusCollector) OnVertexAdded()   { p.changes.WithLabelValues("vertex-added").Inc() }
func (p *PrometheusCollector) OnVertexRemoved() { p.changes.WithLabelValues("vertex-removed").Inc() }
func (p *PrometheusCollector) OnVertexMoved()   { p.changes.WithLabelValues("vertex-moved").Inc() }
func (p *PrometheusCollector) OnEdgeAdded()     { p.changes.WithLabelValues("edge-added").Inc() }
func (p *PrometheusCollector) OnEdgeRemoved()   { p.changes.WithLabelValues("edge-removed").Inc() }

func (p *PrometheusCollector) OnRebuild(_, size int, took time.Duration) {
	p.rebuilds.Inc()
	p.rebuildLatency.Observe(took.Seconds())
	p.lastRebuildSize.Set(float64(size))
}

func (p *PrometheusCollector) OnQuery(kind QueryKind, took time.Duration) {
	p.queryLatency.WithLabelValues(string(kind)).Observe(took.Seconds())
}
