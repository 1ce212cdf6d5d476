//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/testutil"
)

func setupFolderRepo(t *testing.T) (context.Context, *FolderRepository) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)

	return ctx, NewFolderRepository(pool)
}

func TestFolderRepository_CreateAndGet(t *testing.T) {
	ctx, repo := setupFolderRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := domain.NewFolder("distributed-systems/consensus", true, now)
	f.MemberCount = 3
	f.Centroid = testEmbedding(1)
	f.Exemplars = [][]float32{testEmbedding(1), testEmbedding(0, 1)}

	require.NoError(t, repo.Create(ctx, f))

	retrieved, err := repo.GetByPath(ctx, "distributed-systems/consensus")
	require.NoError(t, err)
	assert.Equal(t, 3, retrieved.MemberCount)
	assert.True(t, retrieved.Provisional)
	assert.Len(t, retrieved.Centroid, 1536)
	require.Len(t, retrieved.Exemplars, 2)

	_, err = repo.GetByPath(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)
}

func TestFolderRepository_ListOrdersByPath(t *testing.T) {
	ctx, repo := setupFolderRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Create(ctx, domain.NewFolder("zoology", false, now)))
	require.NoError(t, repo.Create(ctx, domain.NewFolder("algorithms", false, now)))

	folders, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "algorithms", folders[0].Path)
	assert.Equal(t, "zoology", folders[1].Path)
}

func TestFolderRepository_ListBySize(t *testing.T) {
	ctx, repo := setupFolderRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	small := domain.NewFolder("small", false, now)
	small.MemberCount = 2
	large := domain.NewFolder("large", false, now)
	large.MemberCount = 30

	require.NoError(t, repo.Create(ctx, small))
	require.NoError(t, repo.Create(ctx, large))

	folders, err := repo.ListBySize(ctx, 25)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "large", folders[0].Path)
}

func TestFolderRepository_UpdateDerived(t *testing.T) {
	ctx, repo := setupFolderRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := domain.NewFolder("topic", true, now)
	require.NoError(t, repo.Create(ctx, f))

	centroid := testEmbedding(0.6, 0.8)
	exemplars := [][]float32{testEmbedding(1), testEmbedding(0, 1), testEmbedding(0, 0, 1)}
	require.NoError(t, repo.UpdateDerived(ctx, "topic", centroid, exemplars, 3))

	retrieved, err := repo.GetByPath(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, 3, retrieved.MemberCount)
	assert.InDelta(t, 0.6, retrieved.Centroid[0], 0.0001)
	require.Len(t, retrieved.Exemplars, 3)

	// Exemplars are replaced wholesale, not appended.
	require.NoError(t, repo.UpdateDerived(ctx, "topic", centroid, exemplars[:1], 1))
	retrieved, err = repo.GetByPath(ctx, "topic")
	require.NoError(t, err)
	require.Len(t, retrieved.Exemplars, 1)

	assert.ErrorIs(t, repo.UpdateDerived(ctx, "missing", centroid, nil, 0), domain.ErrFolderNotFound)
}

func TestFolderRepository_MarkStable(t *testing.T) {
	ctx, repo := setupFolderRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Create(ctx, domain.NewFolder("topic", true, now)))

	require.NoError(t, repo.MarkStable(ctx, "topic"))

	retrieved, err := repo.GetByPath(ctx, "topic")
	require.NoError(t, err)
	assert.False(t, retrieved.Provisional)

	assert.ErrorIs(t, repo.MarkStable(ctx, "missing"), domain.ErrFolderNotFound)
}
