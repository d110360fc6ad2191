package extractors

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/tokenizer"
)

// Ensure Plaintext implements the interface.
var _ driven.Extractor = (*Plaintext)(nil)

// Plaintext extracts tokens from plain text files. It is also the
// fallback for source code and most structured text formats, which
// tokenize acceptably without format-aware parsing.
type Plaintext struct {
	maxBytes  int64
	maxTokens int
}

// NewPlaintext creates a plain text extractor with the given budgets.
func NewPlaintext(maxBytes int64, maxTokens int) *Plaintext {
	return &Plaintext{maxBytes: maxBytes, maxTokens: maxTokens}
}

// DeclaredTypes returns the declared types this extractor handles.
func (e *Plaintext) DeclaredTypes() []string {
	return []string{"text/plain"}
}

// Extract reads up to maxBytes from the file and tokenizes them.
func (e *Plaintext) Extract(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	tokens, err := tokenizer.Reader(io.LimitReader(f, e.maxBytes), e.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("tokenizing: %w", err)
	}
	return tokens, nil
}
