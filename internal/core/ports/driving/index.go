package driving

import (
	"context"

	"github.com/loupe-search/loupe/internal/core/domain"
)

// IndexService maintains the index: full scans, incremental updates,
// and status reporting.
type IndexService interface {
	// ScanAll walks all configured roots and reconciles the index with
	// the observed tree, sweeping entries that were not re-observed.
	// Cancellation leaves already-written entries intact.
	ScanAll(ctx context.Context) error

	// HandleEvent applies one watcher-derived change to the index.
	// Per-entry failures are logged and absorbed, never fatal.
	HandleEvent(ctx context.Context, ev domain.FileEvent) error

	// Status reports the observable index state.
	Status(ctx context.Context) (*domain.IndexStatus, error)
}

// TagService mutates user-assigned tags. All operations are idempotent.
type TagService interface {
	// AddTagByPath attaches a tag to the entry at path.
	AddTagByPath(ctx context.Context, path, tag string) error

	// RemoveTagByPath detaches a tag from the entry at path.
	RemoveTagByPath(ctx context.Context, path, tag string) error

	// AddTag attaches a tag to an entry by ID.
	AddTag(ctx context.Context, id domain.EntryID, tag string) error

	// RemoveTag detaches a tag from an entry by ID.
	RemoveTag(ctx context.Context, id domain.EntryID, tag string) error
}
