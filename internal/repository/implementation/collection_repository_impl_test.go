package implementation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/database"
)

func newSqliteRepo(t *testing.T) (*CollectionRepositoryImpl, string) {
	dir := filepath.Join(t.TempDir(), "vector_db")
	repo, err := NewSqliteCollectionRepository(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, dir
}

func TestSqliteCollectionRepository_UpsertThenQuery(t *testing.T) {
	repo, _ := newSqliteRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, "session-1"))
	require.NoError(t, repo.Upsert(ctx, "session-1", []*entity.ChunkRecord{
		{Id: "c1", Text: "The fee is $10.90.", Vector: []float32{1, 0, 0}, Metadata: map[string]interface{}{"doc_index": 0}},
		{Id: "c2", Text: "Unrelated", Vector: []float32{0, 1, 0}},
		{Id: "c3", Text: "Failed chunk", Vector: []float32{0, 0, 0}},
	}))

	matches, err := repo.Query(ctx, "session-1", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "c1", matches[0].Id)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.EqualValues(t, 0, matches[0].Metadata["doc_index"])
	assert.InDelta(t, 1, matches[1].Distance, 1e-6)

	require.NoError(t, repo.Upsert(ctx, "session-1", []*entity.ChunkRecord{{Id: "c2", Text: "Replaced", Vector: []float32{0.9, 0.1, 0}}}))
	count, err := repo.Count(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	matches, err = repo.Query(ctx, "session-1", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "Replaced", matches[1].Text)
}

func TestSqliteCollectionRepository_DimensionMismatchIsIgnored(t *testing.T) {
	repo, _ := newSqliteRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.Upsert(ctx, "s", []*entity.ChunkRecord{{Id: "c1", Text: "x", Vector: []float32{1, 0}}}))
	matches, err := repo.Query(ctx, "s", []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSqliteCollectionRepository_DeleteAndList(t *testing.T) {
	repo, _ := newSqliteRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, "a"))
	require.NoError(t, repo.Create(ctx, "b"))
	require.NoError(t, repo.Create(ctx, "a"))

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)

	require.NoError(t, repo.Delete(ctx, "a"))
	names, _ = repo.List(ctx)
	assert.Equal(t, []string{"b"}, names)

	err = repo.Delete(ctx, "a")
	assert.True(t, IsNotFound(err))

	_, err = repo.Count(ctx, "a")
	assert.ErrorIs(t, err, contract.ErrCollectionNotFound)
}

func TestSqliteCollectionRepository_ResetRecreatesDirectory(t *testing.T) {
	repo, dir := newSqliteRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.Upsert(ctx, "a", []*entity.ChunkRecord{{Id: "c1", Text: "x", Vector: []float32{1}}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.bin"), []byte("junk"), 0o644))

	require.NoError(t, repo.Reset(ctx))

	_, err := os.Stat(filepath.Join(dir, "stray.bin"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, database.SqliteFileName))
	assert.NoError(t, err)

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, dir, repo.Location())
}
