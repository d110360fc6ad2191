package query

import "time"

// Node is a parsed query AST node.
type Node interface {
	// Pos returns the byte offset of the node in the query string.
	Pos() int
}

// Term is a bare search term. It matches content tokens and the file
// name. The special term "*" matches every live entry.
type Term struct {
	// Text is the term as written, lowercased.
	Text string

	// Offset is the byte offset in the query string.
	Offset int
}

// Phrase is a quoted multi-token clause. Adjacency is not tracked by
// the posting index, so phrases evaluate as AND of their tokens.
type Phrase struct {
	// Tokens are the normalized tokens of the quoted text.
	Tokens []string

	// Offset is the byte offset in the query string.
	Offset int
}

// Field is a match on a discrete field: tag, ext, type, content or
// name. Tag, ext, type and content match exactly (or by prefix); name
// matches as a substring and honors leading-star suffix patterns.
type Field struct {
	// Name is the canonical field name.
	Name string

	// Value is the match value, case-normalized. For Prefix matches the
	// trailing * has been stripped.
	Value string

	// Prefix marks a trailing-star prefix match (ext:doc*).
	Prefix bool

	// Offset is the byte offset in the query string.
	Offset int
}

// SizeRange is a size predicate with inclusive byte bounds.
// A nil bound is unbounded.
type SizeRange struct {
	Lo, Hi *int64

	// Offset is the byte offset in the query string.
	Offset int
}

// TimeRange is an mtime predicate expressed as entry age.
// mtime:<7d means modified within the last 7 days (MaxAge 7d);
// mtime:>7d means modified earlier than that (MinAge 7d).
// A nil bound is unbounded.
type TimeRange struct {
	MinAge, MaxAge *time.Duration

	// Offset is the byte offset in the query string.
	Offset int
}

// Not negates its operand.
type Not struct {
	X Node
}

// And requires both operands.
type And struct {
	L, R Node
}

// Or requires either operand.
type Or struct {
	L, R Node
}

func (n *Term) Pos() int      { return n.Offset }
func (n *Phrase) Pos() int    { return n.Offset }
func (n *Field) Pos() int     { return n.Offset }
func (n *SizeRange) Pos() int { return n.Offset }
func (n *TimeRange) Pos() int { return n.Offset }
func (n *Not) Pos() int       { return n.X.Pos() }
func (n *And) Pos() int       { return n.L.Pos() }
func (n *Or) Pos() int        { return n.L.Pos() }
