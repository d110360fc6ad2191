package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	nextID  domain.EntryID
	entries map[domain.EntryID]*domain.Entry
	byPath  map[string]domain.EntryID
	byFile  map[domain.FileID]domain.EntryID
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		nextID:  1,
		entries: make(map[domain.EntryID]*domain.Entry),
		byPath:  make(map[string]domain.EntryID),
		byFile:  make(map[domain.FileID]domain.EntryID),
	}
}

// Get retrieves an entry by ID.
func (s *RecordStore) Get(_ context.Context, id domain.EntryID) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry.Clone(), nil
}

// Put stores or totally replaces an entry, assigning an ID if needed.
func (s *RecordStore) Put(_ context.Context, entry *domain.Entry) (domain.EntryID, error) {
	if entry.Path == "" {
		return 0, domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == 0 {
		entry.ID = s.nextID
		s.nextID++
	}
	entry.IndexedAt = time.Now().UTC()

	// Drop stale secondary index entries before replacing.
	if old, ok := s.entries[entry.ID]; ok {
		delete(s.byPath, old.Path)
		delete(s.byFile, old.FileID)
	}

	stored := entry.Clone()
	s.entries[entry.ID] = stored
	s.byPath[stored.Path] = stored.ID
	if !stored.FileID.IsZero() {
		s.byFile[stored.FileID] = stored.ID
	}
	return entry.ID, nil
}

// Delete removes an entry.
func (s *RecordStore) Delete(_ context.Context, id domain.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil
	}
	delete(s.byPath, entry.Path)
	delete(s.byFile, entry.FileID)
	delete(s.entries, id)
	return nil
}

// FindByPath resolves an entry by its current path.
func (s *RecordStore) FindByPath(_ context.Context, path string) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.entries[id].Clone(), nil
}

// FindByFileID resolves an entry by device+inode identity.
func (s *RecordStore) FindByFileID(_ context.Context, fid domain.FileID) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byFile[fid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.entries[id].Clone(), nil
}

// Scan iterates over a snapshot of all entries in ID order.
func (s *RecordStore) Scan(ctx context.Context, fn func(*domain.Entry) bool) error {
	// Copy under the read lock, iterate outside it so the callback
	// never blocks the writer.
	s.mu.RLock()
	snapshot := make([]*domain.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		snapshot = append(snapshot, entry.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })

	for _, entry := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(entry) {
			return nil
		}
	}
	return nil
}

// AllIDs returns the IDs of all live entries in ascending order.
func (s *RecordStore) AllIDs(_ context.Context) ([]domain.EntryID, error) {
	s.mu.RLock()
	ids := make([]domain.EntryID, 0, len(s.entries))
	for id, entry := range s.entries {
		if entry.TombstonedAt == nil {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Count returns the number of live entries.
func (s *RecordStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.entries {
		if e.TombstonedAt == nil {
			n++
		}
	}
	return n, nil
}
