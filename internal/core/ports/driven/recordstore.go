package driven

import (
	"context"

	"github.com/loupe-search/loupe/internal/core/domain"
)

// RecordStore persists one record per indexed filesystem entry.
// All mutations are atomic per entry. Scan is safe to run concurrently
// with Put and Delete issued by the single writer and observes a
// consistent snapshot per entry, never a partially written record.
type RecordStore interface {
	// Get retrieves an entry by ID.
	// Returns domain.ErrNotFound if the entry does not exist.
	Get(ctx context.Context, id domain.EntryID) (*domain.Entry, error)

	// Put stores or totally replaces an entry. An entry with ID zero is
	// assigned a fresh stable ID, returned to the caller.
	Put(ctx context.Context, entry *domain.Entry) (domain.EntryID, error)

	// Delete removes an entry.
	Delete(ctx context.Context, id domain.EntryID) error

	// FindByPath resolves an entry by its current absolute path,
	// tombstoned or not, so re-observation can revive a tombstone.
	// Returns domain.ErrNotFound if no entry has the path.
	FindByPath(ctx context.Context, path string) (*domain.Entry, error)

	// FindByFileID resolves an entry by device+inode identity, used for
	// rename detection. Returns domain.ErrNotFound if unknown.
	FindByFileID(ctx context.Context, fid domain.FileID) (*domain.Entry, error)

	// Scan iterates over all entries, invoking fn per entry. Iteration
	// stops early when fn returns false or ctx is done. The callback
	// receives a snapshot copy it may retain.
	Scan(ctx context.Context, fn func(*domain.Entry) bool) error

	// AllIDs returns the IDs of all live (non-tombstoned) entries in
	// ascending order, for evaluator set complements.
	AllIDs(ctx context.Context) ([]domain.EntryID, error)

	// Count returns the number of live entries; tombstoned entries are
	// excluded.
	Count(ctx context.Context) (int64, error)
}
