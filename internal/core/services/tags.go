package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
)

// Tag mutations go through the same writer mutex as the indexing
// pipeline so tag postings never drift from entry records. All
// operations are idempotent; tags survive content re-extraction
// because extraction only ever replaces Tokens.

// AddTagByPath attaches a tag to the entry at path.
func (i *Indexer) AddTagByPath(ctx context.Context, path, tag string) error {
	entry, err := i.records.FindByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	return i.AddTag(ctx, entry.ID, tag)
}

// RemoveTagByPath detaches a tag from the entry at path.
func (i *Indexer) RemoveTagByPath(ctx context.Context, path, tag string) error {
	entry, err := i.records.FindByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	return i.RemoveTag(ctx, entry.ID, tag)
}

// AddTag attaches a normalized tag to an entry.
func (i *Indexer) AddTag(ctx context.Context, id domain.EntryID, tag string) error {
	if domain.NormalizeTag(tag) == "" {
		return fmt.Errorf("%w: empty tag", domain.ErrInvalidInput)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	entry, err := i.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if !entry.AddTag(tag) {
		return nil
	}
	entry.IndexedAt = time.Now()
	if _, err := i.records.Put(ctx, entry); err != nil {
		return err
	}
	return i.postings.Add(ctx, driven.FieldTag, domain.NormalizeTag(tag), id)
}

// RemoveTag detaches a tag from an entry. Removing an absent tag or a
// tag from an unknown entry is a no-op.
func (i *Indexer) RemoveTag(ctx context.Context, id domain.EntryID, tag string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, err := i.records.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !entry.RemoveTag(tag) {
		return nil
	}
	entry.IndexedAt = time.Now()
	if _, err := i.records.Put(ctx, entry); err != nil {
		return err
	}
	return i.postings.Remove(ctx, driven.FieldTag, domain.NormalizeTag(tag), id)
}
