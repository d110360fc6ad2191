package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loupe-search/loupe/internal/core/domain"
)

func collect(t *testing.T, run *Run) map[string]domain.Observation {
	t.Helper()
	seen := make(map[string]domain.Observation)
	for obs := range run.Observations() {
		seen[obs.Path] = obs
	}
	return seen
}

func TestScanObservesTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("# hi"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "readme.md"), filepath.Join(root, "link.md")))

	run := New(2).Scan(context.Background(), []string{root})
	seen := collect(t, run)
	require.NoError(t, run.Err())

	require.Len(t, seen, 5) // root, docs, notes.txt, readme.md, link.md

	notes := seen[filepath.Join(root, "docs", "notes.txt")]
	assert.Equal(t, domain.KindFile, notes.Kind)
	assert.Equal(t, int64(5), notes.Size)
	assert.False(t, notes.FileID.IsZero())
	assert.False(t, notes.ModTime.IsZero())

	assert.Equal(t, domain.KindDir, seen[filepath.Join(root, "docs")].Kind)
	assert.Equal(t, domain.KindSymlink, seen[filepath.Join(root, "link.md")].Kind)
}

func TestScanMultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "b.txt"), []byte("b"), 0o644))

	run := New(0).Scan(context.Background(), []string{rootA, rootB})
	seen := collect(t, run)
	require.NoError(t, run.Err())

	assert.Contains(t, seen, filepath.Join(rootA, "a.txt"))
	assert.Contains(t, seen, filepath.Join(rootB, "b.txt"))
}

func TestScanRunIDsUnique(t *testing.T) {
	root := t.TempDir()

	a := New(1).Scan(context.Background(), []string{root})
	collect(t, a)
	b := New(1).Scan(context.Background(), []string{root})
	collect(t, b)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestScanMissingRootReported(t *testing.T) {
	run := New(1).Scan(context.Background(), []string{filepath.Join(t.TempDir(), "gone")})
	collect(t, run)

	assert.Error(t, run.Err())
}

func TestScanCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, string(rune('a'+i%26))+".txt"), []byte("x"), 0o644))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := New(2).Scan(ctx, []string{root})
	collect(t, run)

	assert.ErrorIs(t, run.Err(), context.Canceled)
}

func TestObserveMissingPath(t *testing.T) {
	_, err := Observe(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
