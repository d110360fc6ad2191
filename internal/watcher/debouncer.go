package watcher

import (
	"sort"
	"time"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/logger"
)

// DefaultDebounce is the coalescing window when none is configured.
// Editors and build tools emit bursts of writes per logical save; one
// event per path per quiet period is all the indexer needs.
const DefaultDebounce = 500 * time.Millisecond

// Ensure Debouncer implements the port.
var _ driven.WatchSource = (*Debouncer)(nil)

// Debouncer wraps a WatchSource and coalesces same-path events that
// arrive within a quiet window. It is itself a WatchSource, so the
// indexer consumes it without knowing debouncing happens.
type Debouncer struct {
	src    driven.WatchSource
	window time.Duration
	out    chan domain.FileEvent
	done   chan struct{}
}

// NewDebouncer wraps src with the given quiet window.
// A non-positive window selects DefaultDebounce.
func NewDebouncer(src driven.WatchSource, window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	d := &Debouncer{
		src:    src,
		window: window,
		out:    make(chan domain.FileEvent, 64),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Events returns the coalesced event stream.
func (d *Debouncer) Events() <-chan domain.FileEvent {
	return d.out
}

// Errors passes through the underlying source's errors.
func (d *Debouncer) Errors() <-chan error {
	return d.src.Errors()
}

// Add passes through to the underlying source.
func (d *Debouncer) Add(root string) error {
	return d.src.Add(root)
}

// Close closes the underlying source, flushes pending events, and
// closes the outgoing channel.
func (d *Debouncer) Close() error {
	err := d.src.Close()
	<-d.done
	return err
}

func (d *Debouncer) run() {
	defer close(d.done)
	defer close(d.out)

	pending := make(map[string]domain.FileEvent)
	deadlines := make(map[string]time.Time)

	timer := time.NewTimer(d.window)
	if !timer.Stop() {
		<-timer.C
	}
	timerSet := false

	flushDue := func(now time.Time) {
		due := make([]string, 0, len(pending))
		for path, dl := range deadlines {
			if !dl.After(now) {
				due = append(due, path)
			}
		}
		sort.Strings(due)
		for _, path := range due {
			d.out <- pending[path]
			delete(pending, path)
			delete(deadlines, path)
		}
	}
	rearm := func(now time.Time) {
		if timerSet {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timerSet = false
		}
		if len(deadlines) == 0 {
			return
		}
		next := time.Duration(-1)
		for _, dl := range deadlines {
			if wait := dl.Sub(now); next < 0 || wait < next {
				next = wait
			}
		}
		if next < 0 {
			next = 0
		}
		timer.Reset(next)
		timerSet = true
	}

	for {
		select {
		case ev, ok := <-d.src.Events():
			if !ok {
				flushDue(time.Now().Add(d.window))
				return
			}
			now := ev.At
			if now.IsZero() {
				now = time.Now()
			}
			merged, keep := coalesce(pending[ev.Path], ev)
			if keep {
				pending[ev.Path] = merged
				deadlines[ev.Path] = now.Add(d.window)
			} else {
				delete(pending, ev.Path)
				delete(deadlines, ev.Path)
				logger.Debug("Debounce: create+delete for %s cancelled out", ev.Path)
			}
			rearm(time.Now())

		case <-timer.C:
			timerSet = false
			flushDue(time.Now())
			rearm(time.Now())
		}
	}
}

// coalesce merges a newer event into the pending one for the same
// path. The second return is false when the pair cancels out entirely
// (a file created and deleted within one window never existed as far
// as the index is concerned).
func coalesce(prev, next domain.FileEvent) (domain.FileEvent, bool) {
	if prev.Path == "" {
		return next, true
	}
	switch {
	case prev.Op == domain.OpCreate && next.Op == domain.OpDelete:
		return domain.FileEvent{}, false
	case prev.Op == domain.OpCreate && next.Op == domain.OpModify:
		// Still a create from the index's point of view.
		next.Op = domain.OpCreate
		return next, true
	case prev.Op == domain.OpRename && next.Op == domain.OpModify:
		// Keep the rename's old path so the move is still applied.
		next.Op = domain.OpRename
		next.OldPath = prev.OldPath
		return next, true
	default:
		return next, true
	}
}
