package extractors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/loupe-search/loupe/internal/core/ports/driven"
	"github.com/loupe-search/loupe/internal/tokenizer"
)

// Ensure Markdown implements the interface.
var _ driven.Extractor = (*Markdown)(nil)

// Markdown extracts tokens from Markdown files, stripping the syntax
// that would otherwise pollute the token stream: code fences, link
// targets, and heading/emphasis markers.
type Markdown struct {
	maxBytes  int64
	maxTokens int
}

// NewMarkdown creates a Markdown extractor with the given budgets.
func NewMarkdown(maxBytes int64, maxTokens int) *Markdown {
	return &Markdown{maxBytes: maxBytes, maxTokens: maxTokens}
}

// DeclaredTypes returns the declared types this extractor handles.
func (e *Markdown) DeclaredTypes() []string {
	return []string{"text/markdown"}
}

// Extract reads the file, strips Markdown syntax, and tokenizes.
func (e *Markdown) Extract(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var text strings.Builder
	sc := bufio.NewScanner(io.LimitReader(f, e.maxBytes))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inFence := false
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		text.WriteString(stripInline(line))
		text.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading markdown: %w", err)
	}

	tokens, err := tokenizer.Reader(strings.NewReader(text.String()), e.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("tokenizing: %w", err)
	}
	return tokens, nil
}

// stripInline removes link targets so URLs don't become tokens:
// [label](target) keeps only label.
func stripInline(line string) string {
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		if line[i] == ']' && i+1 < len(line) && line[i+1] == '(' {
			end := strings.IndexByte(line[i+1:], ')')
			if end >= 0 {
				b.WriteByte(' ')
				i += 1 + end
				continue
			}
		}
		b.WriteByte(line[i])
	}
	return b.String()
}
