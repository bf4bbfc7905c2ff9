package graph

import (
	"log/slog"

	"github.com/hupe1980/celltrack/internal/arena"
)

// DefaultDimensions is the dimensionality of vertex positions unless
// WithDimensions says otherwise.
const DefaultDimensions = 3

type options struct {
	dimensions      int
	vertexAttrBytes int
	edgeAttrBytes   int
	capacity        int
	offHeap         bool
	acquirer        arena.MemoryAcquirer
	logger          *slog.Logger
}

func defaultOptions() options {
	return options{
		dimensions: DefaultDimensions,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// Option configures a Graph.
type Option func(*options)

// WithDimensions sets the number of position coordinates per vertex.
func WithDimensions(n int) Option {
	return func(o *options) {
		o.dimensions = n
	}
}

// WithVertexAttributeBytes reserves n caller-defined bytes in every vertex slot.
func WithVertexAttributeBytes(n int) Option {
	return func(o *options) {
		o.vertexAttrBytes = n
	}
}

// WithEdgeAttributeBytes reserves n caller-defined bytes in every edge slot.
func WithEdgeAttributeBytes(n int) Option {
	return func(o *options) {
		o.edgeAttrBytes = n
	}
}

// WithInitialCapacity preallocates slots for n vertices and n edges.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithOffHeap stores entity slots in anonymous memory mappings.
func WithOffHeap(enabled bool) Option {
	return func(o *options) {
		o.offHeap = enabled
	}
}

// WithMemoryAcquirer charges slot chunk allocations to acquirer.
func WithMemoryAcquirer(acquirer arena.MemoryAcquirer) Option {
	return func(o *options) {
		o.acquirer = acquirer
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func (o options) arenaOptions() []arena.Option {
	opts := []arena.Option{
		arena.WithCapacity(o.capacity),
		arena.WithLogger(o.logger),
	}
	if o.offHeap {
		opts = append(opts, arena.WithOffHeap())
	}
	if o.acquirer != nil {
		opts = append(opts, arena.WithMemoryAcquirer(o.acquirer))
	}
	return opts
}
