package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, filepath.Join(dir, "index.db"))
	assert.Equal(t, filepath.Join(dir, "index.db"), store.Path())
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	id, err := store.RecordStore().Put(ctx, &domain.Entry{
		Path:   "/notes.txt",
		FileID: domain.FileID{Dev: 1, Ino: 42},
		Kind:   domain.KindFile,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.RecordStore().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/notes.txt", got.Path)
	assert.Equal(t, domain.KindFile, got.Kind)
}

func TestNewStore_CorruptFileReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.db"), []byte("not a database"), 0600))

	_, err := NewStore(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestNewStoreRecovering_DiscardsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.db"), []byte("not a database"), 0600))

	store, rebuilt, err := NewStoreRecovering(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, rebuilt)

	count, err := store.RecordStore().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecordStore_PutGet_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mtime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tomb := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	entry := &domain.Entry{
		FileID:       domain.FileID{Dev: 7, Ino: 1234},
		Path:         "/home/user/notes.txt",
		Kind:         domain.KindFile,
		Size:         500,
		ModTime:      mtime,
		ChangeTime:   mtime.Add(time.Second),
		ContentHash:  "abc123",
		Tags:         []string{"project-x"},
		Tokens:       []string{"hello", "world"},
		ScanGen:      3,
		TombstonedAt: &tomb,
	}

	id, err := store.RecordStore().Put(ctx, entry)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := store.RecordStore().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entry.FileID, got.FileID)
	assert.Equal(t, entry.Path, got.Path)
	assert.Equal(t, domain.KindFile, got.Kind)
	assert.EqualValues(t, 500, got.Size)
	assert.True(t, got.ModTime.Equal(mtime))
	assert.Equal(t, "abc123", got.ContentHash)
	assert.Equal(t, []string{"project-x"}, got.Tags)
	assert.Equal(t, []string{"hello", "world"}, got.Tokens)
	assert.EqualValues(t, 3, got.ScanGen)
	require.NotNil(t, got.TombstonedAt)
	assert.True(t, got.TombstonedAt.Equal(tomb))
}

func TestRecordStore_NilTokensStayNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.RecordStore().Put(ctx, &domain.Entry{Path: "/a", FileID: domain.FileID{Dev: 1, Ino: 1}})
	require.NoError(t, err)

	got, err := store.RecordStore().Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.Tokens)

	// Extracting zero tokens is distinct from never extracted.
	got.Tokens = []string{}
	_, err = store.RecordStore().Put(ctx, got)
	require.NoError(t, err)

	again, err := store.RecordStore().Get(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, again.Tokens)
	assert.Empty(t, again.Tokens)
}

func TestRecordStore_FindByPathAndFileID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fid := domain.FileID{Dev: 3, Ino: 99}
	id, err := store.RecordStore().Put(ctx, &domain.Entry{Path: "/x/y.md", FileID: fid})
	require.NoError(t, err)

	byPath, err := store.RecordStore().FindByPath(ctx, "/x/y.md")
	require.NoError(t, err)
	assert.Equal(t, id, byPath.ID)

	byFile, err := store.RecordStore().FindByFileID(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, id, byFile.ID)

	_, err = store.RecordStore().FindByPath(ctx, "/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.RecordStore().FindByFileID(ctx, domain.FileID{Dev: 9, Ino: 9})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.RecordStore().Put(ctx, &domain.Entry{Path: "/a", FileID: domain.FileID{Dev: 1, Ino: 1}})
	require.NoError(t, err)

	require.NoError(t, store.RecordStore().Delete(ctx, id))
	_, err = store.RecordStore().Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_ScanOrderedByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, p := range []string{"/c", "/a", "/b"} {
		_, err := store.RecordStore().Put(ctx, &domain.Entry{
			Path:   p,
			FileID: domain.FileID{Dev: 1, Ino: uint64(i + 1)},
		})
		require.NoError(t, err)
	}

	var paths []string
	err := store.RecordStore().Scan(ctx, func(e *domain.Entry) bool {
		paths = append(paths, e.Path)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/c", "/a", "/b"}, paths)
}

func TestRecordStore_AllIDs_ExcludesTombstoned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.RecordStore().Put(ctx, &domain.Entry{Path: "/live", FileID: domain.FileID{Dev: 1, Ino: 1}})
	require.NoError(t, err)

	now := time.Now()
	_, err = store.RecordStore().Put(ctx, &domain.Entry{
		Path:         "/gone",
		FileID:       domain.FileID{Dev: 1, Ino: 2},
		TombstonedAt: &now,
	})
	require.NoError(t, err)

	ids, err := store.RecordStore().AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntryID{id1}, ids)
}

func TestRecordStore_Count_ExcludesTombstoned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordStore().Put(ctx, &domain.Entry{Path: "/live", FileID: domain.FileID{Dev: 1, Ino: 1}})
	require.NoError(t, err)

	now := time.Now()
	_, err = store.RecordStore().Put(ctx, &domain.Entry{
		Path:         "/gone",
		FileID:       domain.FileID{Dev: 1, Ino: 2},
		TombstonedAt: &now,
	})
	require.NoError(t, err)

	count, err := store.RecordStore().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestPostingIndex_AddPostingsSorted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	idx := store.PostingIndex()

	for _, id := range []domain.EntryID{5, 1, 3, 1} {
		require.NoError(t, idx.Add(ctx, driven.FieldToken, "hello", id))
	}

	ids, err := idx.Postings(ctx, driven.FieldToken, "hello")
	require.NoError(t, err)
	assert.Equal(t, []domain.EntryID{1, 3, 5}, ids)
}

func TestPostingIndex_RemoveAndRemoveAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	idx := store.PostingIndex()

	require.NoError(t, idx.Add(ctx, driven.FieldTag, "work", 1))
	require.NoError(t, idx.Add(ctx, driven.FieldExt, "txt", 1))
	require.NoError(t, idx.Add(ctx, driven.FieldExt, "txt", 2))

	require.NoError(t, idx.Remove(ctx, driven.FieldExt, "txt", 2))
	ids, err := idx.Postings(ctx, driven.FieldExt, "txt")
	require.NoError(t, err)
	assert.Equal(t, []domain.EntryID{1}, ids)

	require.NoError(t, idx.RemoveAll(ctx, 1))
	ids, err = idx.Postings(ctx, driven.FieldExt, "txt")
	require.NoError(t, err)
	assert.Empty(t, ids)
	ids, err = idx.Postings(ctx, driven.FieldTag, "work")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPostingIndex_PostingsPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	idx := store.PostingIndex()

	require.NoError(t, idx.Add(ctx, driven.FieldExt, "doc", 2))
	require.NoError(t, idx.Add(ctx, driven.FieldExt, "doc", 1))
	require.NoError(t, idx.Add(ctx, driven.FieldExt, "docx", 3))
	require.NoError(t, idx.Add(ctx, driven.FieldExt, "pdf", 4))

	out, err := idx.PostingsPrefix(ctx, driven.FieldExt, "doc")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "doc", out[0].Value)
	assert.Equal(t, []domain.EntryID{1, 2}, out[0].IDs)
	assert.Equal(t, "docx", out[1].Value)
	assert.Equal(t, []domain.EntryID{3}, out[1].IDs)
}

func TestPostingIndex_PrefixEscapesLikeMetacharacters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	idx := store.PostingIndex()

	require.NoError(t, idx.Add(ctx, driven.FieldToken, "100%done", 1))
	require.NoError(t, idx.Add(ctx, driven.FieldToken, "100xdone", 2))

	out, err := idx.PostingsPrefix(ctx, driven.FieldToken, "100%")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "100%done", out[0].Value)
}
