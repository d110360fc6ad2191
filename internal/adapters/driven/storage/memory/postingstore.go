package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
)

// Ensure PostingIndex implements the interface.
var _ driven.PostingIndex = (*PostingIndex)(nil)

// PostingIndex is an in-memory implementation of driven.PostingIndex.
// Posting sets are sorted ascending and deduplicated on insert.
type PostingIndex struct {
	mu       sync.RWMutex
	postings map[driven.PostingField]map[string][]domain.EntryID
}

// NewPostingIndex creates a new in-memory posting index.
func NewPostingIndex() *PostingIndex {
	return &PostingIndex{
		postings: make(map[driven.PostingField]map[string][]domain.EntryID),
	}
}

// Add inserts an entry into the posting set. Idempotent.
func (p *PostingIndex) Add(_ context.Context, field driven.PostingField, value string, id domain.EntryID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	values, ok := p.postings[field]
	if !ok {
		values = make(map[string][]domain.EntryID)
		p.postings[field] = values
	}

	ids := values[value]
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return nil
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	values[value] = ids
	return nil
}

// Remove deletes an entry from the posting set.
func (p *PostingIndex) Remove(_ context.Context, field driven.PostingField, value string, id domain.EntryID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	values, ok := p.postings[field]
	if !ok {
		return nil
	}
	ids := values[value]
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i >= len(ids) || ids[i] != id {
		return nil
	}
	ids = append(ids[:i], ids[i+1:]...)
	if len(ids) == 0 {
		delete(values, value)
	} else {
		values[value] = ids
	}
	return nil
}

// RemoveAll deletes every posting referencing the entry.
func (p *PostingIndex) RemoveAll(_ context.Context, id domain.EntryID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, values := range p.postings {
		for value, ids := range values {
			i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
			if i >= len(ids) || ids[i] != id {
				continue
			}
			ids = append(ids[:i], ids[i+1:]...)
			if len(ids) == 0 {
				delete(values, value)
			} else {
				values[value] = ids
			}
		}
	}
	return nil
}

// Postings returns a copy of the sorted posting set for an exact value.
func (p *PostingIndex) Postings(_ context.Context, field driven.PostingField, value string) ([]domain.EntryID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := p.postings[field][value]
	if len(ids) == 0 {
		return nil, nil
	}
	return append([]domain.EntryID(nil), ids...), nil
}

// PostingsPrefix returns posting sets for every value with the prefix,
// ordered by value.
func (p *PostingIndex) PostingsPrefix(_ context.Context, field driven.PostingField, prefix string) ([]driven.PrefixPostings, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []driven.PrefixPostings
	for value, ids := range p.postings[field] {
		if len(value) < len(prefix) || value[:len(prefix)] != prefix {
			continue
		}
		out = append(out, driven.PrefixPostings{
			Value: value,
			IDs:   append([]domain.EntryID(nil), ids...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}
