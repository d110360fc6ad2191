// Package services contains the core application services: the
// indexing writer, the search reader, and the watch loop that drives
// incremental updates. Services depend only on ports; adapters are
// wired in by the caller at startup.
package services

import (
	"time"

	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/scanner"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	// Roots are the directories to index.
	Roots []string

	// ScanWorkers sizes the scanner's stat worker pool.
	ScanWorkers int

	// RescanInterval is the periodic full-rescan cadence.
	RescanInterval time.Duration

	// Rebuilding marks an index that was discarded after corruption
	// and must be repopulated by the next full scan.
	Rebuilding bool
}

// Service bundles the constructed core services over one set of
// stores. There is deliberately no package-level instance: callers
// construct a Service at startup, pass it where needed, and let it go
// out of scope on shutdown.
type Service struct {
	// Index is the single writer. It also serves tag mutations.
	Index *Indexer

	// Search is the query reader.
	Search *Search

	opts Options
}

// New wires the core services over the given stores.
func New(
	records driven.RecordStore,
	postings driven.PostingIndex,
	extract driven.ExtractorRegistry,
	opts Options,
) (*Service, error) {
	idx, err := NewIndexer(
		records,
		postings,
		extract,
		scanner.New(opts.ScanWorkers),
		opts.Roots,
		opts.Rebuilding,
	)
	if err != nil {
		return nil, err
	}
	return &Service{
		Index:  idx,
		Search: NewSearch(records, postings),
		opts:   opts,
	}, nil
}

// Watch builds the daemon loop for this service over a watch source.
func (s *Service) Watch(source driven.WatchSource) *Watch {
	return NewWatch(s.Index, source, s.opts.RescanInterval)
}
