package driven

import (
	"context"

	"github.com/loupe-search/loupe/internal/core/domain"
)

// PostingField names an inverted-index field. Numeric metadata (size,
// mtime) is range-filtered against the record store instead of being
// posting-indexed.
type PostingField string

const (
	// FieldTag indexes user-assigned tags.
	FieldTag PostingField = "tag"

	// FieldExt indexes lowercased file extensions.
	FieldExt PostingField = "ext"

	// FieldToken indexes extracted content tokens.
	FieldToken PostingField = "token"

	// FieldType indexes the entry kind (file, dir, symlink, other).
	FieldType PostingField = "type"
)

// PrefixPostings is one (value, postings) pair returned by a prefix scan.
type PrefixPostings struct {
	// Value is the full posting value matching the prefix.
	Value string

	// IDs is the sorted, deduplicated posting set for Value.
	IDs []domain.EntryID
}

// PostingIndex maps (field, value) pairs to sorted sets of entry IDs.
// Posting sets are ascending and deduplicated so the evaluator can
// intersect and union them with linear-time merges.
type PostingIndex interface {
	// Add inserts an entry into the posting set. Idempotent.
	Add(ctx context.Context, field PostingField, value string, id domain.EntryID) error

	// Remove deletes an entry from the posting set. Removing an absent
	// posting is a no-op.
	Remove(ctx context.Context, field PostingField, value string, id domain.EntryID) error

	// RemoveAll deletes every posting referencing the entry, across all
	// fields. Used by the deletion path to keep referential integrity.
	RemoveAll(ctx context.Context, id domain.EntryID) error

	// Postings returns the sorted posting set for an exact value.
	// An unknown value yields an empty set, not an error.
	Postings(ctx context.Context, field PostingField, value string) ([]domain.EntryID, error)

	// PostingsPrefix returns (value, postings) pairs for every value with
	// the given prefix, ordered by value. Used for queries like ext:doc*.
	PostingsPrefix(ctx context.Context, field PostingField, prefix string) ([]PrefixPostings, error)
}
