// Package sqlite provides the durable storage adapter backing both the
// record store and the posting index over a single SQLite database.
//
// # On-disk layout
//
// One WAL-mode database file (default ~/.loupe/data/index.db) holds two
// tables. entries stores one row per indexed filesystem object: its
// device+inode identity, path, kind, size, timestamps (Unix
// nanoseconds), content hash, JSON-encoded tags and tokens, scan
// generation and tombstone marker. postings stores (field, value,
// entry_id) rows whose composite primary key doubles as a covering
// index, so posting sets come back sorted by entry id and prefix scans
// come back sorted by value without an explicit ORDER BY sort step.
//
// # Crash recovery
//
// WAL journaling makes individual statements durable and atomic. At
// open time the store runs PRAGMA integrity_check and verifies the
// expected tables exist; on failure it reports domain.ErrIndexCorrupt
// so the caller can discard the file and rebuild from a full scan,
// surfacing a "rebuilding" status until the scan completes.
package sqlite
