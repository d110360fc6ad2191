package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/core/ports/driving"
	"github.com/loupe-search/loupe/internal/extractors"
	"github.com/loupe-search/loupe/internal/logger"
	"github.com/loupe-search/loupe/internal/scanner"
)

// Ensure Indexer implements its driving ports.
var (
	_ driving.IndexService = (*Indexer)(nil)
	_ driving.TagService   = (*Indexer)(nil)
)

// Indexer is the single logical writer. Every mutation of the record
// store and posting index funnels through its mutex, so readers always
// observe a consistent pair of stores. Reads (search) never take the
// mutex; per-entry snapshot isolation in the stores is enough.
type Indexer struct {
	records  driven.RecordStore
	postings driven.PostingIndex
	extract  driven.ExtractorRegistry
	scan     *scanner.Scanner
	roots    []string

	// mu serializes all index mutations.
	mu sync.Mutex

	// state guards the scan bookkeeping below.
	state        sync.Mutex
	scanning     bool
	rebuilding   bool
	scanGen      uint64
	lastScanID   string
	lastScanTime time.Time
}

// NewIndexer wires an indexer over its stores. rebuilding marks an
// index that was discarded after corruption; the flag clears when the
// next full scan completes.
func NewIndexer(
	records driven.RecordStore,
	postings driven.PostingIndex,
	extract driven.ExtractorRegistry,
	scan *scanner.Scanner,
	roots []string,
	rebuilding bool,
) (*Indexer, error) {
	idx := &Indexer{
		records:  records,
		postings: postings,
		extract:  extract,
		scan:     scan,
		roots:    roots,

		rebuilding: rebuilding,
	}

	// Resume the generation counter from persisted state so a restart
	// never reuses a generation and mis-sweeps live entries.
	err := records.Scan(context.Background(), func(e *domain.Entry) bool {
		if e.ScanGen > idx.scanGen {
			idx.scanGen = e.ScanGen
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("reading scan generation: %w", err)
	}
	return idx, nil
}

// ScanAll walks all roots and reconciles the index with what it finds.
// Entries missed by this scan are tombstoned; entries already
// tombstoned and missed again are deleted. Only one scan runs at a
// time. Cancellation stops the walk but keeps everything written so
// far, and skips the sweep since absence was not established.
func (i *Indexer) ScanAll(ctx context.Context) error {
	i.state.Lock()
	if i.scanning {
		i.state.Unlock()
		return domain.ErrScanInProgress
	}
	i.scanning = true
	gen := i.scanGen + 1
	i.state.Unlock()

	defer func() {
		i.state.Lock()
		i.scanning = false
		i.state.Unlock()
	}()

	run := i.scan.Scan(ctx, i.roots)
	logger.Info("Scan %s: started (generation %d)", run.ID, gen)

	var merr *multierror.Error
	applied := 0
	for obs := range run.Observations() {
		if err := i.applyObservation(ctx, obs, gen); err != nil {
			logger.Warn("Scan %s: %s: %v", run.ID, obs.Path, err)
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", obs.Path, err))
			continue
		}
		applied++
	}
	if err := run.Err(); err != nil {
		logger.Warn("Scan %s: incomplete, skipping sweep: %v", run.ID, err)
		return multierror.Append(merr, err).ErrorOrNil()
	}

	swept, err := i.sweep(ctx, gen)
	if err != nil {
		return multierror.Append(merr, err).ErrorOrNil()
	}

	i.state.Lock()
	i.scanGen = gen
	i.lastScanID = run.ID
	i.lastScanTime = time.Now()
	i.rebuilding = false
	i.state.Unlock()

	logger.Info("Scan %s: done, %d entries observed, %d swept", run.ID, applied, swept)
	return merr.ErrorOrNil()
}

// HandleEvent applies one watcher-derived change.
func (i *Indexer) HandleEvent(ctx context.Context, ev domain.FileEvent) error {
	gen := i.eventGen()

	switch ev.Op {
	case domain.OpCreate, domain.OpModify:
		obs, err := scanner.Observe(ev.Path)
		if err != nil {
			// Gone or unreadable. Tombstone if we knew it.
			return i.tombstonePath(ctx, ev.Path)
		}
		return i.applyObservation(ctx, obs, gen)

	case domain.OpDelete:
		return i.deletePath(ctx, ev.Path)

	case domain.OpRename:
		if err := i.renamePath(ctx, ev.OldPath, ev.Path); err != nil {
			return err
		}
		// Re-observe under the new path in case content also changed.
		obs, err := scanner.Observe(ev.Path)
		if err != nil {
			return i.tombstonePath(ctx, ev.Path)
		}
		return i.applyObservation(ctx, obs, gen)

	default:
		return fmt.Errorf("%w: event op %d", domain.ErrInvalidInput, ev.Op)
	}
}

// eventGen returns the generation to stamp on event-driven writes.
// While a scan is in flight that is the scan's own generation, so a
// file indexed from an event during the scan is not mistaken for
// unobserved and tombstoned by the sweep.
func (i *Indexer) eventGen() uint64 {
	i.state.Lock()
	defer i.state.Unlock()
	if i.scanning {
		return i.scanGen + 1
	}
	return i.scanGen
}

// Status reports the observable index state.
func (i *Indexer) Status(ctx context.Context) (*domain.IndexStatus, error) {
	count, err := i.records.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}

	i.state.Lock()
	defer i.state.Unlock()

	st := domain.IndexStateReady
	switch {
	case i.rebuilding:
		st = domain.IndexStateRebuilding
	case i.scanning:
		st = domain.IndexStateScanning
	}
	return &domain.IndexStatus{
		State:        st,
		EntryCount:   count,
		LastScanID:   i.lastScanID,
		LastScanTime: i.lastScanTime,
		Roots:        append([]string(nil), i.roots...),
	}, nil
}

// applyObservation is the upsert pipeline. Per entry it decides
// create vs update vs rename, gates content work on (size, mtime),
// gates re-extraction on the content hash, and refreshes postings.
func (i *Indexer) applyObservation(ctx context.Context, obs domain.Observation, gen uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, err := i.records.FindByPath(ctx, obs.Path)
	if errors.Is(err, domain.ErrNotFound) && !obs.FileID.IsZero() {
		// Unknown path, known file identity: a rename observed as a
		// fresh path. Keep the entry (and its tags) under the new path.
		entry, err = i.records.FindByFileID(ctx, obs.FileID)
		if err == nil {
			logger.Debug("Index: %s moved to %s", entry.Path, obs.Path)
		}
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if entry == nil {
		entry = &domain.Entry{}
	}

	fresh := entry.ID == 0
	unchanged := !fresh &&
		entry.Path == obs.Path &&
		entry.Size == obs.Size &&
		entry.ModTime.Equal(obs.ModTime) &&
		entry.Kind == obs.Kind

	entry.FileID = obs.FileID
	entry.Path = obs.Path
	entry.Kind = obs.Kind
	entry.Size = obs.Size
	entry.ModTime = obs.ModTime
	entry.ChangeTime = obs.ChangeTime
	entry.ScanGen = gen
	entry.TombstonedAt = nil
	entry.IndexedAt = time.Now()

	if unchanged {
		// Metadata-only touch point: record liveness, skip content work.
		_, err := i.records.Put(ctx, entry)
		return err
	}

	if entry.Kind == domain.KindFile {
		if err := i.refreshContent(ctx, entry); err != nil {
			return err
		}
	}

	id, err := i.records.Put(ctx, entry)
	if err != nil {
		return err
	}
	entry.ID = id

	return i.writePostings(ctx, entry)
}

// refreshContent recomputes the hash and, if content actually changed,
// re-extracts tokens. Extraction failure is absorbed: the entry keeps
// its previous tokens and stays searchable by metadata.
func (i *Indexer) refreshContent(ctx context.Context, entry *domain.Entry) error {
	hash, err := hashFile(entry.Path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	if hash == entry.ContentHash {
		return nil
	}
	entry.ContentHash = hash

	declared := extractors.DeclaredTypeFor(entry.Path)
	if declared == "" {
		return nil
	}
	tokens, err := i.extract.Extract(ctx, entry.Path, declared)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			return nil
		}
		logger.Warn("Index: extraction failed for %s: %v", entry.Path, err)
		return nil
	}
	entry.Tokens = tokens
	return nil
}

// writePostings replaces every posting for the entry with the current
// state. Full replace keeps the index and the record trivially in step.
func (i *Indexer) writePostings(ctx context.Context, entry *domain.Entry) error {
	if err := i.postings.RemoveAll(ctx, entry.ID); err != nil {
		return err
	}
	for _, tag := range entry.Tags {
		if err := i.postings.Add(ctx, driven.FieldTag, tag, entry.ID); err != nil {
			return err
		}
	}
	if ext := entry.Ext(); ext != "" {
		if err := i.postings.Add(ctx, driven.FieldExt, ext, entry.ID); err != nil {
			return err
		}
	}
	if err := i.postings.Add(ctx, driven.FieldType, entry.Kind.String(), entry.ID); err != nil {
		return err
	}
	for _, tok := range entry.Tokens {
		if err := i.postings.Add(ctx, driven.FieldToken, tok, entry.ID); err != nil {
			return err
		}
	}
	return nil
}

// sweep handles entries the completed scan did not observe. First miss
// tombstones; a second consecutive miss deletes for good. Re-observed
// tombstones were already revived by applyObservation.
func (i *Indexer) sweep(ctx context.Context, gen uint64) (int, error) {
	var missed []*domain.Entry
	err := i.records.Scan(ctx, func(e *domain.Entry) bool {
		if e.ScanGen < gen {
			missed = append(missed, e)
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("sweeping: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	swept := 0
	for _, e := range missed {
		if e.TombstonedAt != nil {
			if err := i.postings.RemoveAll(ctx, e.ID); err != nil {
				return swept, err
			}
			if err := i.records.Delete(ctx, e.ID); err != nil {
				return swept, err
			}
			swept++
			continue
		}
		now := time.Now()
		e.TombstonedAt = &now
		if _, err := i.records.Put(ctx, e); err != nil {
			return swept, err
		}
	}
	return swept, nil
}

func (i *Indexer) tombstonePath(ctx context.Context, path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, err := i.records.FindByPath(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if entry.TombstonedAt != nil {
		return nil
	}
	now := time.Now()
	entry.TombstonedAt = &now
	_, err = i.records.Put(ctx, entry)
	return err
}

func (i *Indexer) deletePath(ctx context.Context, path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, err := i.records.FindByPath(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := i.postings.RemoveAll(ctx, entry.ID); err != nil {
		return err
	}
	return i.records.Delete(ctx, entry.ID)
}

func (i *Indexer) renamePath(ctx context.Context, oldPath, newPath string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, err := i.records.FindByPath(ctx, oldPath)
	if errors.Is(err, domain.ErrNotFound) {
		// Old path unknown; the follow-up observation indexes the new
		// path as a create.
		return nil
	}
	if err != nil {
		return err
	}

	entry.Path = newPath
	entry.IndexedAt = time.Now()
	if _, err := i.records.Put(ctx, entry); err != nil {
		return err
	}
	// Extension may have changed with the name.
	return i.writePostings(ctx, entry)
}

// hashFile returns the hex SHA-256 of the file content.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
