package domain

import "time"

// EventOp classifies a filesystem change notification.
type EventOp uint8

const (
	OpCreate EventOp = iota
	OpModify
	OpDelete
	OpRename
)

// String returns a human-readable operation name.
func (o EventOp) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// FileEvent is a normalized filesystem change notification.
// The watch capability is best effort: events may be dropped under load,
// so consumers must treat periodic full rescans as the source of truth.
type FileEvent struct {
	// Path is the absolute path the event refers to.
	// For renames, Path is the new path.
	Path string

	// OldPath is the previous path for rename events, "" otherwise.
	OldPath string

	// Op is the change kind.
	Op EventOp

	// At is when the event was observed.
	At time.Time
}

// Observation is one entry seen by the scanner during a walk.
type Observation struct {
	// Path is the absolute path of the observed entry.
	Path string

	// FileID is the device+inode identity.
	FileID FileID

	// Kind classifies the entry.
	Kind Kind

	// Size is the apparent size in bytes.
	Size int64

	// ModTime is the content modification time.
	ModTime time.Time

	// ChangeTime is the status change time.
	ChangeTime time.Time
}
