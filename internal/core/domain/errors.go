package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles the declared type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrScanInProgress indicates a full scan is already running.
	ErrScanInProgress = errors.New("scan in progress")

	// ErrIndexCorrupt indicates the on-disk index failed validation.
	// The corrupt structure is discarded and rebuilt from a fresh scan.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrExtractionBudget indicates extraction exceeded its time or
	// size budget and was truncated or abandoned.
	ErrExtractionBudget = errors.New("extraction budget exceeded")
)

// ParseError is a client-facing query parse failure. It carries the byte
// offset and offending token so callers can localize the problem.
type ParseError struct {
	// Pos is the byte offset of the offending token in the query string.
	Pos int

	// Token is the offending token text, "" at end of input.
	Token string

	// Msg names the expected construct.
	Msg string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("parse error at offset %d near %q: %s", e.Pos, e.Token, e.Msg)
}

// UnknownFieldError is a client-facing error naming an unrecognized
// query field, distinct from a generic parse failure.
type UnknownFieldError struct {
	// Field is the unrecognized field name.
	Field string

	// Pos is the byte offset of the field name in the query string.
	Pos int
}

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q at offset %d", e.Field, e.Pos)
}
