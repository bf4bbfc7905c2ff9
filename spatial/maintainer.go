package spatial

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRebuildThreshold is the ModCount above which the maintainer
// rebuilds an index.
const DefaultRebuildThreshold = 64

// Maintainer periodically rebuilds the indices of a SpatioTemporalIndex
// whose overflow has grown past a threshold.
type Maintainer struct {
	index     *SpatioTemporalIndex
	interval  time.Duration
	threshold int
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMaintainer creates a stopped maintainer. A threshold below zero
// selects DefaultRebuildThreshold.
func NewMaintainer(index *SpatioTemporalIndex, interval time.Duration, threshold int) *Maintainer {
	if threshold < 0 {
		threshold = DefaultRebuildThreshold
	}
	return &Maintainer{
		index:     index,
		interval:  interval,
		threshold: threshold,
		logger:    index.o.logger,
	}
}

// RunOnce performs one maintenance pass.
func (m *Maintainer) RunOnce(ctx context.Context) (int, error) {
	n, err := m.index.RebuildIfNeeded(ctx, m.threshold)
	if err != nil {
		m.logger.Error("spatial maintenance failed", slog.Any("error", err))
		return n, err
	}
	if n > 0 {
		m.logger.Debug("spatial maintenance", slog.Int("rebuilt", n))
	}
	return n, nil
}

// Start launches the maintenance loop. It is a no-op if the loop is
// already running.
func (m *Maintainer) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop ends the maintenance loop and waits for it to exit.
func (m *Maintainer) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		m.wg.Wait()
	}
}

func (m *Maintainer) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = m.RunOnce(ctx)
		}
	}
}
