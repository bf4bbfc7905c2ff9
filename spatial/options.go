package spatial

import (
	"log/slog"

	"github.com/hupe1980/celltrack/resource"
)

type options struct {
	logger   *slog.Logger
	observer Observer
	rc       *resource.Controller
}

func applyOptions(fns []Option) options {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range fns {
		fn(&o)
	}
	return o
}

// Option configures an Index or SpatioTemporalIndex.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers an observer notified after every rebuild.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithResourceController bounds concurrent rebuilds by the controller's
// background worker limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}
