package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/core/ports/driving"
	"github.com/loupe-search/loupe/internal/logger"
)

// DefaultRescanInterval is the periodic full-rescan cadence when none
// is configured. The watcher handles the common case; the rescan
// repairs whatever it missed.
const DefaultRescanInterval = time.Hour

// Watch pumps filesystem events into the index and runs periodic full
// rescans. It is the daemon's main loop.
type Watch struct {
	index    driving.IndexService
	source   driven.WatchSource
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewWatch creates the watch loop. A non-positive interval selects
// DefaultRescanInterval.
func NewWatch(index driving.IndexService, source driven.WatchSource, interval time.Duration) *Watch {
	if interval <= 0 {
		interval = DefaultRescanInterval
	}
	return &Watch{index: index, source: source, interval: interval}
}

// Start runs an initial full scan and then blocks, applying watcher
// events and rescanning on the interval, until Stop is called or the
// context is cancelled.
func (w *Watch) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	if err := w.index.ScanAll(ctx); err != nil && !errors.Is(err, domain.ErrScanInProgress) {
		logger.Warn("Watch: initial scan: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil

		case ev, ok := <-w.source.Events():
			if !ok {
				return nil
			}
			if err := w.index.HandleEvent(ctx, ev); err != nil {
				logger.Warn("Watch: %s %s: %v", ev.Op, ev.Path, err)
			}

		case err, ok := <-w.source.Errors():
			if ok && err != nil {
				logger.Warn("Watch: source error: %v", err)
			}

		case <-ticker.C:
			logger.Debug("Watch: periodic rescan")
			if err := w.index.ScanAll(ctx); err != nil && !errors.Is(err, domain.ErrScanInProgress) {
				logger.Warn("Watch: rescan: %v", err)
			}
		}
	}
}

// Stop shuts the loop down and waits for it to exit.
func (w *Watch) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
}
