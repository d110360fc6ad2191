// Package watcher adapts filesystem notifications into normalized
// change events. The fsnotify-backed source watches roots recursively
// and the debouncer coalesces event bursts before they reach the
// indexer. Delivery is best effort: the periodic rescan is the
// consistency backstop, not this package.
package watcher

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/logger"
)

// Ensure Source implements the port.
var _ driven.WatchSource = (*Source)(nil)

// Source is the fsnotify-backed watch source. New directories created
// under a watched root are added to the watch automatically, since
// inotify watches are per-directory, not recursive.
type Source struct {
	fsw    *fsnotify.Watcher
	events chan domain.FileEvent
	errs   chan error
	done   chan struct{}

	// lastRemoved pairs a Rename (old name) with the Create that
	// follows when a file is moved within watched roots.
	lastRemoved     string
	lastRemovedTime time.Time
}

// renamePairWindow is how long a Rename waits for its matching Create
// before degrading to a plain delete.
const renamePairWindow = 2 * time.Second

// NewSource creates and starts a watch source. Call Add per root.
func NewSource() (*Source, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	s := &Source{
		fsw:    fsw,
		events: make(chan domain.FileEvent, 64),
		errs:   make(chan error, 8),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Events returns the normalized event stream.
func (s *Source) Events() <-chan domain.FileEvent {
	return s.events
}

// Errors returns non-fatal watch errors.
func (s *Source) Errors() <-chan error {
	return s.errs
}

// Add watches a root directory and all its subdirectories.
func (s *Source) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("Watch: skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := s.fsw.Add(path); err != nil {
			logger.Warn("Watch: cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// Close stops watching and closes the event channel.
func (s *Source) Close() error {
	err := s.fsw.Close()
	<-s.done
	return err
}

func (s *Source) run() {
	defer close(s.done)
	defer close(s.events)

	for {
		select {
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			s.handle(ev)
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			select {
			case s.errs <- err:
			default:
				logger.Warn("Watch: dropping error: %v", err)
			}
		}
	}
}

// handle translates one raw fsnotify event. fsnotify reports a move as
// Rename on the old name followed by Create on the new name; when the
// two arrive close together they are fused into a single rename event.
func (s *Source) handle(ev fsnotify.Event) {
	now := time.Now()

	switch {
	case ev.Op.Has(fsnotify.Create):
		if s.lastRemoved != "" && now.Sub(s.lastRemovedTime) < renamePairWindow {
			old := s.lastRemoved
			s.lastRemoved = ""
			s.emit(domain.FileEvent{Path: ev.Name, OldPath: old, Op: domain.OpRename, At: now})
			s.watchIfDir(ev.Name)
			return
		}
		s.emit(domain.FileEvent{Path: ev.Name, Op: domain.OpCreate, At: now})
		s.watchIfDir(ev.Name)

	case ev.Op.Has(fsnotify.Write):
		s.emit(domain.FileEvent{Path: ev.Name, Op: domain.OpModify, At: now})

	case ev.Op.Has(fsnotify.Remove):
		s.emit(domain.FileEvent{Path: ev.Name, Op: domain.OpDelete, At: now})

	case ev.Op.Has(fsnotify.Rename):
		// Old name disappeared. Hold it briefly in case the matching
		// Create arrives; a move out of the watched roots never gets
		// one, so flush the previous hold as a delete first.
		s.flushPendingRename(now)
		s.lastRemoved = ev.Name
		s.lastRemovedTime = now

	case ev.Op.Has(fsnotify.Chmod):
		// Metadata only. The indexer's staleness gate makes a modify
		// cheap when content is unchanged.
		s.emit(domain.FileEvent{Path: ev.Name, Op: domain.OpModify, At: now})
	}
}

func (s *Source) flushPendingRename(now time.Time) {
	if s.lastRemoved == "" {
		return
	}
	s.emit(domain.FileEvent{Path: s.lastRemoved, Op: domain.OpDelete, At: now})
	s.lastRemoved = ""
}

func (s *Source) emit(ev domain.FileEvent) {
	select {
	case s.events <- ev:
	default:
		// Consumer is behind. Dropping is acceptable: the periodic
		// rescan reconciles anything missed here.
		logger.Warn("Watch: dropping %s event for %s", ev.Op, ev.Path)
	}
}

func (s *Source) watchIfDir(path string) {
	if err := s.Add(path); err != nil {
		logger.Debug("Watch: %s not added: %v", path, err)
	}
}
