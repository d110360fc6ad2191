package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/loupe-search/loupe/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/logger"
)

// Store is a unified SQLite-based storage providing the record store
// and posting index ports over one database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the index database at the specified data
// directory. If dataDir is empty, defaults to ~/.loupe/data/index.db.
// Returns an error wrapping domain.ErrIndexCorrupt when the existing
// file fails validation.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".loupe", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode for concurrent readers alongside the single writer.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.validate(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// NewStoreRecovering opens the index database, discarding and recreating
// it if validation reports corruption. The second return value is true
// when a rebuild from a fresh scan is required.
func NewStoreRecovering(dataDir string) (*Store, bool, error) {
	s, err := NewStore(dataDir)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		return nil, false, err
	}

	logger.Warn("Index database failed validation, discarding: %v", err)
	if dataDir == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return nil, false, fmt.Errorf("getting home directory: %w", herr)
		}
		dataDir = filepath.Join(home, ".loupe", "data")
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		os.Remove(filepath.Join(dataDir, "index.db"+suffix))
	}

	s, err = NewStore(dataDir)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// PostingIndex returns a PostingIndex interface backed by this store.
func (s *Store) PostingIndex() driven.PostingIndex {
	return &postingIndex{store: s}
}

// validate detects on-disk corruption before serving queries.
func (s *Store) validate() error {
	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check(1)").Scan(&result); err != nil {
		return fmt.Errorf("%w: integrity check: %v", domain.ErrIndexCorrupt, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: integrity check: %s", domain.ErrIndexCorrupt, result)
	}

	// A present schema_migrations without the data tables means a
	// half-written database; a fresh file (no tables at all) is fine.
	var migrated int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'",
	).Scan(&migrated)
	if err != nil {
		return fmt.Errorf("%w: schema probe: %v", domain.ErrIndexCorrupt, err)
	}
	if migrated == 0 {
		return nil
	}

	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return fmt.Errorf("%w: reading schema version: %v", domain.ErrIndexCorrupt, err)
	}
	if version == 0 {
		return nil
	}
	for _, table := range []string{"entries", "postings"} {
		var n int
		err := s.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("%w: schema probe: %v", domain.ErrIndexCorrupt, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: missing table %s", domain.ErrIndexCorrupt, table)
		}
	}
	return nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

const entryColumns = `id, dev, ino, path, kind, size, mtime_ns, ctime_ns,
	content_hash, tags, tokens, scan_gen, tombstoned_ns, indexed_ns`

// Get retrieves an entry by ID.
func (s *recordStore) Get(ctx context.Context, id domain.EntryID) (*domain.Entry, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`, int64(id))
	return scanEntryRow(row)
}

// Put stores or totally replaces an entry, assigning an ID if needed.
func (s *recordStore) Put(ctx context.Context, entry *domain.Entry) (domain.EntryID, error) {
	if entry.Path == "" {
		return 0, domain.ErrInvalidInput
	}

	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return 0, fmt.Errorf("marshalling tags: %w", err)
	}

	var tokensJSON any
	if entry.Tokens != nil {
		b, err := json.Marshal(entry.Tokens)
		if err != nil {
			return 0, fmt.Errorf("marshalling tokens: %w", err)
		}
		tokensJSON = string(b)
	}

	var tombstonedNS any
	if entry.TombstonedAt != nil {
		tombstonedNS = entry.TombstonedAt.UnixNano()
	}

	entry.IndexedAt = time.Now().UTC()

	if entry.ID == 0 {
		res, err := s.store.db.ExecContext(ctx, `
			INSERT INTO entries (dev, ino, path, kind, size, mtime_ns, ctime_ns,
				content_hash, tags, tokens, scan_gen, tombstoned_ns, indexed_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, entry.FileID.Dev, entry.FileID.Ino, entry.Path, entry.Kind.String(),
			entry.Size, entry.ModTime.UnixNano(), entry.ChangeTime.UnixNano(),
			entry.ContentHash, string(tagsJSON), tokensJSON,
			entry.ScanGen, tombstonedNS, entry.IndexedAt.UnixNano())
		if err != nil {
			return 0, fmt.Errorf("inserting entry: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading inserted id: %w", err)
		}
		entry.ID = domain.EntryID(id)
		return entry.ID, nil
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO entries (id, dev, ino, path, kind, size, mtime_ns, ctime_ns,
			content_hash, tags, tokens, scan_gen, tombstoned_ns, indexed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dev = excluded.dev,
			ino = excluded.ino,
			path = excluded.path,
			kind = excluded.kind,
			size = excluded.size,
			mtime_ns = excluded.mtime_ns,
			ctime_ns = excluded.ctime_ns,
			content_hash = excluded.content_hash,
			tags = excluded.tags,
			tokens = excluded.tokens,
			scan_gen = excluded.scan_gen,
			tombstoned_ns = excluded.tombstoned_ns,
			indexed_ns = excluded.indexed_ns
	`, int64(entry.ID), entry.FileID.Dev, entry.FileID.Ino, entry.Path, entry.Kind.String(),
		entry.Size, entry.ModTime.UnixNano(), entry.ChangeTime.UnixNano(),
		entry.ContentHash, string(tagsJSON), tokensJSON,
		entry.ScanGen, tombstonedNS, entry.IndexedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("saving entry: %w", err)
	}
	return entry.ID, nil
}

// Delete removes an entry.
func (s *recordStore) Delete(ctx context.Context, id domain.EntryID) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}

// FindByPath resolves an entry by its current path.
func (s *recordStore) FindByPath(ctx context.Context, path string) (*domain.Entry, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE path = ?`, path)
	return scanEntryRow(row)
}

// FindByFileID resolves an entry by device+inode identity.
func (s *recordStore) FindByFileID(ctx context.Context, fid domain.FileID) (*domain.Entry, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE dev = ? AND ino = ?`, fid.Dev, fid.Ino)
	return scanEntryRow(row)
}

// Scan iterates over all entries in ID order. Each row is a consistent
// snapshot of one entry; the set is not a point-in-time snapshot of
// the whole store.
func (s *recordStore) Scan(ctx context.Context, fn func(*domain.Entry) bool) error {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if !fn(entry) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating entries: %w", err)
	}
	return nil
}

// AllIDs returns the IDs of all live entries in ascending order.
func (s *recordStore) AllIDs(ctx context.Context) ([]domain.EntryID, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id FROM entries WHERE tombstoned_ns IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.EntryID //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, domain.EntryID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of live entries.
func (s *recordStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE tombstoned_ns IS NULL").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// ==================== Posting Index ====================

// postingIndex implements driven.PostingIndex.
type postingIndex struct {
	store *Store
}

var _ driven.PostingIndex = (*postingIndex)(nil)

// Add inserts an entry into the posting set. Idempotent.
func (p *postingIndex) Add(ctx context.Context, field driven.PostingField, value string, id domain.EntryID) error {
	_, err := p.store.db.ExecContext(ctx, `
		INSERT INTO postings (field, value, entry_id) VALUES (?, ?, ?)
		ON CONFLICT(field, value, entry_id) DO NOTHING
	`, string(field), value, int64(id))
	if err != nil {
		return fmt.Errorf("adding posting: %w", err)
	}
	return nil
}

// Remove deletes an entry from the posting set.
func (p *postingIndex) Remove(ctx context.Context, field driven.PostingField, value string, id domain.EntryID) error {
	_, err := p.store.db.ExecContext(ctx,
		"DELETE FROM postings WHERE field = ? AND value = ? AND entry_id = ?",
		string(field), value, int64(id))
	if err != nil {
		return fmt.Errorf("removing posting: %w", err)
	}
	return nil
}

// RemoveAll deletes every posting referencing the entry.
func (p *postingIndex) RemoveAll(ctx context.Context, id domain.EntryID) error {
	_, err := p.store.db.ExecContext(ctx,
		"DELETE FROM postings WHERE entry_id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("removing postings: %w", err)
	}
	return nil
}

// Postings returns the sorted posting set for an exact value.
func (p *postingIndex) Postings(ctx context.Context, field driven.PostingField, value string) ([]domain.EntryID, error) {
	rows, err := p.store.db.QueryContext(ctx, `
		SELECT entry_id FROM postings
		WHERE field = ? AND value = ?
		ORDER BY entry_id
	`, string(field), value)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()

	var ids []domain.EntryID //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		ids = append(ids, domain.EntryID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings: %w", err)
	}
	return ids, nil
}

// PostingsPrefix returns posting sets for every value with the prefix,
// ordered by value.
func (p *postingIndex) PostingsPrefix(ctx context.Context, field driven.PostingField, prefix string) ([]driven.PrefixPostings, error) {
	// ESCAPE so literal %/_ in posting values cannot widen the match.
	pattern := escapeLike(prefix) + "%"
	rows, err := p.store.db.QueryContext(ctx, `
		SELECT value, entry_id FROM postings
		WHERE field = ? AND value LIKE ? ESCAPE '\'
		ORDER BY value, entry_id
	`, string(field), pattern)
	if err != nil {
		return nil, fmt.Errorf("querying prefix postings: %w", err)
	}
	defer rows.Close()

	var out []driven.PrefixPostings
	for rows.Next() {
		var value string
		var id int64
		if err := rows.Scan(&value, &id); err != nil {
			return nil, fmt.Errorf("scanning prefix posting: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Value != value {
			out = append(out, driven.PrefixPostings{Value: value})
		}
		out[len(out)-1].IDs = append(out[len(out)-1].IDs, domain.EntryID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prefix postings: %w", err)
	}
	return out, nil
}

// escapeLike escapes LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// ==================== Helper Functions ====================

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntryRow(row *sql.Row) (*domain.Entry, error) {
	entry, err := scanEntryFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func scanEntry(rows *sql.Rows) (*domain.Entry, error) {
	return scanEntryFrom(rows)
}

func scanEntryFrom(r rowScanner) (*domain.Entry, error) {
	var entry domain.Entry
	var id int64
	var kind, tagsJSON string
	var tokensJSON sql.NullString
	var mtimeNS, ctimeNS, indexedNS int64
	var tombstonedNS sql.NullInt64

	if err := r.Scan(&id, &entry.FileID.Dev, &entry.FileID.Ino, &entry.Path, &kind,
		&entry.Size, &mtimeNS, &ctimeNS, &entry.ContentHash, &tagsJSON, &tokensJSON,
		&entry.ScanGen, &tombstonedNS, &indexedNS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}

	entry.ID = domain.EntryID(id)
	entry.Kind = domain.KindFromString(kind)
	entry.ModTime = time.Unix(0, mtimeNS)
	entry.ChangeTime = time.Unix(0, ctimeNS)
	entry.IndexedAt = time.Unix(0, indexedNS)

	if err := json.Unmarshal([]byte(tagsJSON), &entry.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags: %w", err)
	}
	if tokensJSON.Valid {
		if err := json.Unmarshal([]byte(tokensJSON.String), &entry.Tokens); err != nil {
			return nil, fmt.Errorf("unmarshalling tokens: %w", err)
		}
		if entry.Tokens == nil {
			entry.Tokens = []string{}
		}
	}
	if tombstonedNS.Valid {
		t := time.Unix(0, tombstonedNS.Int64)
		entry.TombstonedAt = &t
	}

	return &entry, nil
}
