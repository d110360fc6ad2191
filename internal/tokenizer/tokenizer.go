// Package tokenizer splits text into searchable content tokens.
// The same tokenization is applied to extracted file content and to
// query terms so that content matching is exact by construction.
package tokenizer

import (
	"bufio"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTokenLen is the longest token kept, in bytes. Longer runs
// (minified blobs, base64) are discarded rather than truncated.
const MaxTokenLen = 64

// Split is a bufio.SplitFunc yielding maximal runs of letters and
// digits. Everything else is a separator.
func Split(data []byte, atEOF bool) (advance int, tok []byte, err error) {
	// Skip leading separators.
	start := 0
	for start < len(data) {
		r, size := utf8.DecodeRune(data[start:])
		if r == utf8.RuneError && !atEOF && start+size >= len(data) {
			// Possibly a partial rune at the buffer edge.
			return start, nil, nil
		}
		if isTokenRune(r) {
			break
		}
		start += size
	}
	if start == len(data) {
		return start, nil, nil
	}

	for i := start; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && !atEOF && i+size >= len(data) {
			return start, nil, nil
		}
		if !isTokenRune(r) {
			return i + size, data[start:i], nil
		}
		i += size
	}
	if atEOF {
		return len(data), data[start:], nil
	}
	// Token may continue past the buffer; request more data.
	return start, nil, nil
}

// Reader tokenizes a stream, returning at most maxTokens lowercased
// tokens in order of first appearance, deduplicated.
func Reader(r io.Reader, maxTokens int) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Split(Split)

	seen := make(map[string]struct{})
	var out []string
	for sc.Scan() {
		tok := Normalize(sc.Text())
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if maxTokens > 0 && len(out) >= maxTokens {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// String tokenizes an in-memory string with no token cap.
func String(s string) []string {
	toks, _ := Reader(strings.NewReader(s), 0)
	return toks
}

// Normalize lowercases a single candidate token, returning "" when it
// is not a valid token (empty or over-long).
func Normalize(s string) string {
	if s == "" || len(s) > MaxTokenLen {
		return ""
	}
	return strings.ToLower(s)
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
