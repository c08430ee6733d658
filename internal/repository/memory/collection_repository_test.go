package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
)

func TestCollectionRepository_UpsertQuery(t *testing.T) {
	ctx := t.Context()
	repo := NewCollectionRepository()

	require.NoError(t, repo.Create(ctx, "s1"))
	require.NoError(t, repo.Upsert(ctx, "s1", []*entity.ChunkRecord{
		{Id: "c1", Text: "east", Vector: []float32{1, 0}},
		{Id: "c2", Text: "north", Vector: []float32{0, 1}},
		{Id: "odd", Text: "wrong size", Vector: []float32{1, 0, 0}},
	}))
	require.NoError(t, repo.Upsert(ctx, "s1", []*entity.ChunkRecord{{Id: "c2", Text: "north-east", Vector: []float32{1, 1}}}))

	count, err := repo.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	matches, err := repo.Query(ctx, "s1", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "c1", matches[0].Id)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
	assert.Equal(t, "north-east", matches[1].Text)
}

func TestCollectionRepository_Lifecycle(t *testing.T) {
	ctx := t.Context()
	repo := NewCollectionRepository()

	require.NoError(t, repo.Create(ctx, "a"))
	require.NoError(t, repo.Create(ctx, "b"))
	require.NoError(t, repo.Create(ctx, "a"))

	names, _ := repo.List(ctx)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, repo.Delete(ctx, "a"))
	err := repo.Delete(ctx, "a")
	assert.ErrorIs(t, err, contract.ErrCollectionNotFound)

	_, err = repo.Query(ctx, "a", []float32{1}, 1)
	assert.ErrorIs(t, err, contract.ErrCollectionNotFound)

	require.NoError(t, repo.Reset(ctx))
	names, _ = repo.List(ctx)
	assert.Empty(t, names)
}
