package domain

import (
	"io/fs"
	"sort"
	"strings"
	"time"
)

// EntryID is the stable identifier of an indexed filesystem entry.
// IDs are assigned by the record store on first observation, are never
// reused while the entry is live, and sort ascending so posting lists
// can be merged in linear time.
type EntryID int64

// FileID identifies a filesystem object independently of its path.
// Renames keep the FileID, so they keep the EntryID and all postings.
type FileID struct {
	// Dev is the device number of the filesystem holding the object.
	Dev uint64

	// Ino is the inode number on that device.
	Ino uint64
}

// IsZero reports whether the FileID is unset.
func (f FileID) IsZero() bool {
	return f.Dev == 0 && f.Ino == 0
}

// Kind classifies a filesystem entry.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
	KindOther
)

// String returns the canonical form used for type postings and queries.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindFromString parses the canonical form. Unknown strings map to KindOther.
func KindFromString(s string) Kind {
	switch s {
	case "file":
		return KindFile
	case "dir":
		return KindDir
	case "symlink":
		return KindSymlink
	default:
		return KindOther
	}
}

// KindFromMode derives the Kind from a file mode.
func KindFromMode(mode fs.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

// Entry represents one indexed filesystem object.
// It is the canonical record the indexer maintains and queries return.
type Entry struct {
	// ID is the stable store-assigned identifier.
	ID EntryID

	// FileID is the device+inode identity used for rename detection.
	FileID FileID

	// Path is the current absolute path. Mutable on rename.
	Path string

	// Kind classifies the entry.
	Kind Kind

	// Size is the apparent size in bytes at last observation.
	Size int64

	// ModTime is the content modification time at last observation.
	ModTime time.Time

	// ChangeTime is the status change time at last observation.
	ChangeTime time.Time

	// ContentHash is the SHA-256 digest of file content, hex encoded.
	// Empty for directories and files that have not been hashed yet.
	// Used to skip re-extraction when only metadata changed.
	ContentHash string

	// Tags are user-assigned labels, case-normalized and sorted.
	// Tags persist across content changes and re-extraction.
	Tags []string

	// Tokens are the extracted content tokens. Nil until the first
	// successful extraction; never discarded on extraction failure.
	Tokens []string

	// ScanGen records the scan generation that last observed this entry.
	// Entries missed by a completed full scan become sweep candidates.
	ScanGen uint64

	// TombstonedAt marks the entry pending deletion. A later observation
	// clears it; a confirming sweep removes the entry for good.
	TombstonedAt *time.Time

	// IndexedAt is when the entry was last written to the index.
	IndexedAt time.Time
}

// Name returns the final path element.
func (e *Entry) Name() string {
	if i := strings.LastIndexByte(e.Path, '/'); i >= 0 {
		return e.Path[i+1:]
	}
	return e.Path
}

// Ext returns the lowercased extension without the leading dot,
// or "" when the name has none.
func (e *Entry) Ext() string {
	name := e.Name()
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// HasTag reports whether the entry carries the given normalized tag.
func (e *Entry) HasTag(tag string) bool {
	tag = NormalizeTag(tag)
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds a normalized tag, keeping Tags sorted and deduplicated.
// Returns true if the tag set changed.
func (e *Entry) AddTag(tag string) bool {
	tag = NormalizeTag(tag)
	if tag == "" || e.HasTag(tag) {
		return false
	}
	e.Tags = append(e.Tags, tag)
	sort.Strings(e.Tags)
	return true
}

// RemoveTag removes a normalized tag. Returns true if the tag set changed.
func (e *Entry) RemoveTag(tag string) bool {
	tag = NormalizeTag(tag)
	for i, t := range e.Tags {
		if t == tag {
			e.Tags = append(e.Tags[:i], e.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// NormalizeTag lowercases and trims a tag string.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Clone returns a deep copy so readers never observe writer mutations.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Tags = append([]string(nil), e.Tags...)
	if e.Tokens != nil {
		c.Tokens = append([]string(nil), e.Tokens...)
	}
	if e.TombstonedAt != nil {
		t := *e.TombstonedAt
		c.TombstonedAt = &t
	}
	return &c
}
