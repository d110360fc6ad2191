package extractors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loupe-search/loupe/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDeclaredTypeFor(t *testing.T) {
	assert.Equal(t, "text/markdown", DeclaredTypeFor("/notes/todo.md"))
	assert.Equal(t, "text/markdown", DeclaredTypeFor("readme.MARKDOWN"))
	assert.Equal(t, "text/plain", DeclaredTypeFor("main.go"))
	assert.Equal(t, "text/plain", DeclaredTypeFor("/var/log/app.log"))
	assert.Equal(t, "", DeclaredTypeFor("photo.jpg"))
	assert.Equal(t, "", DeclaredTypeFor("noextension"))
}

func TestRegistryUnsupportedType(t *testing.T) {
	r := NewDefaultRegistry(0, 0)

	_, err := r.Extract(context.Background(), "/tmp/x.bin", "application/octet-stream")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestPlaintextExtract(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "Grocery list: milk, eggs, milk again")

	r := NewDefaultRegistry(0, 0)
	tokens, err := r.Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)

	assert.Equal(t, []string{"grocery", "list", "milk", "eggs", "again"}, tokens)
}

func TestPlaintextByteBudget(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", "alpha beta gamma delta")

	// Budget cuts the file after "alpha beta g".
	e := NewPlaintext(12, DefaultMaxTokens)
	tokens, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta", "g"}, tokens)
}

func TestPlaintextTokenBudget(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "many.txt", "one two three four five")

	e := NewPlaintext(DefaultMaxBytes, 3)
	tokens, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two", "three"}, tokens)
}

func TestPlaintextMissingFile(t *testing.T) {
	e := NewPlaintext(DefaultMaxBytes, DefaultMaxTokens)
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.Error(t, err)
}

func TestMarkdownStripsSyntax(t *testing.T) {
	dir := t.TempDir()
	content := "# Heading\n\nSome *emphasis* and a [link](https://example.com/secret-url).\n\n```go\nfunc hidden() {}\n```\n\nafter fence\n"
	path := writeFile(t, dir, "doc.md", content)

	e := NewMarkdown(DefaultMaxBytes, DefaultMaxTokens)
	tokens, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Contains(t, tokens, "heading")
	assert.Contains(t, tokens, "emphasis")
	assert.Contains(t, tokens, "link")
	assert.Contains(t, tokens, "after")
	assert.NotContains(t, tokens, "hidden")
	assert.NotContains(t, tokens, "example")
	assert.NotContains(t, tokens, "secret")
}

func TestExtractIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stable.txt", "same content every time")

	r := NewDefaultRegistry(0, 0)
	first, err := r.Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	second, err := r.Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.txt", "anything")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewDefaultRegistry(0, 0)
	_, err := r.Extract(ctx, path, "text/plain")
	assert.Error(t, err)
}
