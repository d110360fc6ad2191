package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loupe-search/loupe/internal/adapters/driven/storage/memory"
	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/extractors"
)

func newTestService(t *testing.T, roots ...string) *Service {
	t.Helper()
	svc, err := New(
		memory.NewRecordStore(),
		memory.NewPostingIndex(),
		extractors.NewDefaultRegistry(0, 0),
		Options{Roots: roots, ScanWorkers: 2},
	)
	require.NoError(t, err)
	return svc
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func search(t *testing.T, svc *Service, q string) []domain.SearchResult {
	t.Helper()
	results, err := svc.Search.Search(context.Background(), q, domain.SearchOptions{})
	require.NoError(t, err)
	return results
}

func paths(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Entry.Path
	}
	return out
}

func TestScanIndexesTree(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "notes.txt"), "remember the apple pie recipe")
	write(t, filepath.Join(root, "docs", "ideas.md"), "# Ideas\n\nbuild a treehouse")

	svc := newTestService(t, root)
	require.NoError(t, svc.Index.ScanAll(context.Background()))

	results := search(t, svc, "apple")
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "notes.txt"), results[0].Entry.Path)
	assert.NotEmpty(t, results[0].Entry.ContentHash)

	results = search(t, svc, "treehouse")
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "docs", "ideas.md"), results[0].Entry.Path)
}

func TestScanConverges(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.txt"), "alpha")
	write(t, filepath.Join(root, "b.txt"), "beta")

	svc := newTestService(t, root)
	require.NoError(t, svc.Index.ScanAll(context.Background()))

	first, err := svc.Index.Status(context.Background())
	require.NoError(t, err)

	// A second scan over the unchanged tree changes nothing.
	require.NoError(t, svc.Index.ScanAll(context.Background()))
	second, err := svc.Index.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.EntryCount, second.EntryCount)
	assert.Len(t, search(t, svc, "alpha"), 1)
}

func TestModifyReplacesTokenPostings(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	write(t, path, "apple banana")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))
	require.Len(t, search(t, svc, "apple"), 1)

	write(t, path, "banana cherry")
	require.NoError(t, svc.Index.ScanAll(ctx))

	assert.Empty(t, search(t, svc, "apple"))
	assert.Len(t, search(t, svc, "cherry"), 1)
}

func TestDeletedEntrySweptAfterTwoScans(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.txt")
	write(t, path, "ephemeral content")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))
	require.Len(t, search(t, svc, "ephemeral"), 1)

	before, err := svc.Index.Status(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	// First miss tombstones: invisible to search and to the entry
	// count, record retained.
	require.NoError(t, svc.Index.ScanAll(ctx))
	assert.Empty(t, search(t, svc, "ephemeral"))

	st, err := svc.Index.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.EntryCount-1, st.EntryCount)

	// Second miss deletes for good.
	require.NoError(t, svc.Index.ScanAll(ctx))
	_, err = svc.Index.records.FindByPath(ctx, path)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, search(t, svc, "ephemeral"))
}

func TestTombstoneRevivedByReappearance(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "flaky.txt")
	write(t, path, "persistent words")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))

	require.NoError(t, os.Remove(path))
	require.NoError(t, svc.Index.ScanAll(ctx))
	assert.Empty(t, search(t, svc, "persistent"))

	write(t, path, "persistent words")
	require.NoError(t, svc.Index.ScanAll(ctx))
	assert.Len(t, search(t, svc, "persistent"), 1)
}

func TestRenameKeepsIdentityAndTags(t *testing.T) {
	root := t.TempDir()
	oldPath := filepath.Join(root, "draft.txt")
	write(t, oldPath, "chapter one")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))
	require.NoError(t, svc.Index.AddTagByPath(ctx, oldPath, "writing"))

	before, err := svc.Index.records.FindByPath(ctx, oldPath)
	require.NoError(t, err)

	newPath := filepath.Join(root, "chapter1.txt")
	require.NoError(t, os.Rename(oldPath, newPath))
	require.NoError(t, svc.Index.ScanAll(ctx))

	after, err := svc.Index.records.FindByPath(ctx, newPath)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, []string{"writing"}, after.Tags)

	results := search(t, svc, "tag:writing")
	require.Len(t, results, 1)
	assert.Equal(t, newPath, results[0].Entry.Path)
}

func TestMetadataTouchSkipsReextraction(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "stable.txt")
	write(t, path, "unchanging content")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))

	before, err := svc.Index.records.FindByPath(ctx, path)
	require.NoError(t, err)

	// Touch: new mtime, same bytes. Hash gate must keep tokens as-is.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))
	require.NoError(t, svc.Index.ScanAll(ctx))

	after, err := svc.Index.records.FindByPath(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, before.ContentHash, after.ContentHash)
	assert.Equal(t, before.Tokens, after.Tokens)
}

func TestHandleEventCreateModifyDelete(t *testing.T) {
	root := t.TempDir()
	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))

	path := filepath.Join(root, "live.txt")
	write(t, path, "first version")
	require.NoError(t, svc.Index.HandleEvent(ctx, domain.FileEvent{Path: path, Op: domain.OpCreate}))
	assert.Len(t, search(t, svc, "first"), 1)

	write(t, path, "second version")
	require.NoError(t, svc.Index.HandleEvent(ctx, domain.FileEvent{Path: path, Op: domain.OpModify}))
	assert.Empty(t, search(t, svc, "first"))
	assert.Len(t, search(t, svc, "second"), 1)

	require.NoError(t, os.Remove(path))
	require.NoError(t, svc.Index.HandleEvent(ctx, domain.FileEvent{Path: path, Op: domain.OpDelete}))
	assert.Empty(t, search(t, svc, "second"))
}

func TestHandleEventRename(t *testing.T) {
	root := t.TempDir()
	oldPath := filepath.Join(root, "before.txt")
	write(t, oldPath, "movable feast")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))

	newPath := filepath.Join(root, "after.txt")
	require.NoError(t, os.Rename(oldPath, newPath))
	require.NoError(t, svc.Index.HandleEvent(ctx, domain.FileEvent{
		Path: newPath, OldPath: oldPath, Op: domain.OpRename,
	}))

	results := search(t, svc, "movable")
	require.Len(t, results, 1)
	assert.Equal(t, newPath, results[0].Entry.Path)
}

func TestHandleEventVanishedPathTombstones(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "blink.txt")
	write(t, path, "here and gone")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))

	require.NoError(t, os.Remove(path))
	// Modify event for a path that no longer exists.
	require.NoError(t, svc.Index.HandleEvent(ctx, domain.FileEvent{Path: path, Op: domain.OpModify}))

	assert.Empty(t, search(t, svc, "gone"))
}

func TestHandleEventDuringScanSurvivesSweep(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "base.txt"), "alpha")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))

	// A file appears while the next scan is walking, after the walker
	// has passed its directory. The event write must carry the
	// in-flight generation so that scan's sweep does not tombstone it.
	idx := svc.Index
	idx.state.Lock()
	idx.scanning = true
	idx.state.Unlock()

	fresh := filepath.Join(root, "fresh.txt")
	write(t, fresh, "zephyr content")
	require.NoError(t, idx.HandleEvent(ctx, domain.FileEvent{Path: fresh, Op: domain.OpCreate}))

	entry, err := idx.records.FindByPath(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, idx.scanGen+1, entry.ScanGen)

	_, err = idx.sweep(ctx, idx.scanGen+1)
	require.NoError(t, err)
	idx.state.Lock()
	idx.scanGen++
	idx.scanning = false
	idx.state.Unlock()

	assert.Equal(t, []string{fresh}, paths(search(t, svc, "zephyr")))
}

func TestStatusReflectsScans(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "x.txt"), "x")

	svc := newTestService(t, root)
	ctx := context.Background()

	st, err := svc.Index.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStateReady, st.State)
	assert.Empty(t, st.LastScanID)

	require.NoError(t, svc.Index.ScanAll(ctx))

	st, err = svc.Index.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStateReady, st.State)
	assert.NotEmpty(t, st.LastScanID)
	assert.False(t, st.LastScanTime.IsZero())
	assert.Equal(t, []string{root}, st.Roots)
	assert.Greater(t, st.EntryCount, int64(0))
}

func TestRebuildingClearsAfterScan(t *testing.T) {
	root := t.TempDir()
	svc, err := New(
		memory.NewRecordStore(),
		memory.NewPostingIndex(),
		extractors.NewDefaultRegistry(0, 0),
		Options{Roots: []string{root}, Rebuilding: true},
	)
	require.NoError(t, err)
	ctx := context.Background()

	st, err := svc.Index.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStateRebuilding, st.State)

	require.NoError(t, svc.Index.ScanAll(ctx))

	st, err = svc.Index.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStateReady, st.State)
}

func TestTagAddRemoveRoundTrip(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "report.txt")
	write(t, path, "quarterly numbers")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))

	require.NoError(t, svc.Index.AddTagByPath(ctx, path, "Work"))
	require.NoError(t, svc.Index.AddTagByPath(ctx, path, "work")) // idempotent, normalized

	results := search(t, svc, "tag:work")
	require.Len(t, results, 1)
	assert.Equal(t, []string{"work"}, results[0].Entry.Tags)

	require.NoError(t, svc.Index.RemoveTagByPath(ctx, path, "work"))
	require.NoError(t, svc.Index.RemoveTagByPath(ctx, path, "work")) // still idempotent
	assert.Empty(t, search(t, svc, "tag:work"))
}

func TestTagSurvivesContentChange(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "todo.txt")
	write(t, path, "buy milk")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))
	require.NoError(t, svc.Index.AddTagByPath(ctx, path, "errands"))

	write(t, path, "buy milk and bread")
	require.NoError(t, svc.Index.ScanAll(ctx))

	results := search(t, svc, "tag:errands")
	require.Len(t, results, 1)
	assert.Len(t, search(t, svc, "bread"), 1)
}

func TestAddTagRejectsEmpty(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	write(t, path, "x")

	svc := newTestService(t, root)
	ctx := context.Background()
	require.NoError(t, svc.Index.ScanAll(ctx))

	err := svc.Index.AddTagByPath(ctx, path, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestScanCancellationKeepsWrites(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		write(t, filepath.Join(root, string(rune('a'+i))+".txt"), "filler words here")
	}

	svc := newTestService(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Index.ScanAll(ctx)
	assert.Error(t, err)

	// Whatever was written stays; the sweep never ran.
	require.NoError(t, svc.Index.ScanAll(context.Background()))
	assert.NotEmpty(t, search(t, svc, "filler"))
}
