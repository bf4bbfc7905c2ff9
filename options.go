package celltrack

import (
	"log/slog"
	"time"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/resource"
	"github.com/hupe1980/celltrack/spatial"
)

type options struct {
	dimensions          int
	dimensionsSet       bool
	initialCapacity     int
	vertexAttrBytes     int
	edgeAttrBytes       int
	offHeap             bool
	metricsCollector    MetricsCollector
	logger              *Logger
	rebuildThreshold    int
	maintenanceInterval time.Duration
	rc                  *resource.Controller
}

// Option configures a Model on New and Load.
type Option func(*options)

// WithDimensions sets the number of position coordinates per vertex.
// Load rejects a saved model whose dimensionality differs.
func WithDimensions(n int) Option {
	return func(o *options) {
		o.dimensions = n
		o.dimensionsSet = true
	}
}

// WithInitialCapacity pre-sizes the vertex and edge arenas.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.initialCapacity = n
	}
}

// WithVertexAttributeBytes reserves n caller-defined bytes per vertex.
func WithVertexAttributeBytes(n int) Option {
	return func(o *options) {
		o.vertexAttrBytes = n
	}
}

// WithEdgeAttributeBytes reserves n caller-defined bytes per edge.
func WithEdgeAttributeBytes(n int) Option {
	return func(o *options) {
		o.edgeAttrBytes = n
	}
}

// WithOffHeap stores slot memory in anonymous mappings outside the Go heap.
func WithOffHeap(enabled bool) Option {
	return func(o *options) {
		o.offHeap = enabled
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &celltrack.BasicMetricsCollector{}
//	m, _ := celltrack.New(celltrack.WithMetricsCollector(metrics))
//	// ... use m ...
//	stats := metrics.GetStats()
//	fmt.Printf("Vertices added: %d, rebuilds: %d\n", stats.VerticesAdded, stats.Rebuilds)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := celltrack.NewJSONLogger(slog.LevelInfo)
//	m, _ := celltrack.New(celltrack.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithRebuildThreshold sets the per-timepoint ModCount above which
// RebuildIfNeeded and the maintainer rebuild an index.
func WithRebuildThreshold(n int) Option {
	return func(o *options) {
		o.rebuildThreshold = n
	}
}

// WithMaintenanceInterval starts a background maintainer that checks the
// spatial indices every d. Zero disables it.
func WithMaintenanceInterval(d time.Duration) Option {
	return func(o *options) {
		o.maintenanceInterval = d
	}
}

// WithResourceController bounds slot memory, concurrent rebuilds and
// save/load bandwidth.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		dimensions:       graph.DefaultDimensions,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		rebuildThreshold: spatial.DefaultRebuildThreshold,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o options) graphOptions() []graph.Option {
	opts := []graph.Option{
		graph.WithDimensions(o.dimensions),
		graph.WithInitialCapacity(o.initialCapacity),
		graph.WithVertexAttributeBytes(o.vertexAttrBytes),
		graph.WithEdgeAttributeBytes(o.edgeAttrBytes),
		graph.WithOffHeap(o.offHeap),
		graph.WithLogger(o.logger.WithComponent("graph").Logger),
	}
	if o.rc != nil {
		opts = append(opts, graph.WithMemoryAcquirer(o.rc))
	}
	return opts
}

func (o options) spatialOptions() []spatial.Option {
	return []spatial.Option{
		spatial.WithLogger(o.logger.WithComponent("spatial").Logger),
		spatial.WithObserver(o.metricsCollector),
		spatial.WithResourceController(o.rc),
	}
}
