package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/domain"
)

func clusteringConfig() config.ClusteringConfig {
	return config.ClusteringConfig{
		SimilarityThreshold: 0.75,
		MinClusterSize:      5,
		CoherenceFloor:      0.1,
		MaxPoolSize:         500,
	}
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{FolderCacheSize: 16, FolderCacheTTL: time.Minute}
}

// mutualVectors builds n unit vectors whose pairwise cosine similarity is
// exactly sim: a shared component of weight sqrt(sim) plus an orthogonal
// per-vector component of weight sqrt(1-sim).
func mutualVectors(n int, sim float64) [][]float32 {
	shared := float32(math.Sqrt(sim))
	unique := float32(math.Sqrt(1 - sim))

	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, n+1)
		v[0] = shared
		v[i+1] = unique
		vectors[i] = v
	}
	return vectors
}

func poolArtifact(id string, embedding []float32) *domain.Artifact {
	return &domain.Artifact{ID: id, Title: id, Embedding: embedding}
}

func TestClusterPool(t *testing.T) {
	t.Run("six mutually similar artifacts form one create_folder cluster", func(t *testing.T) {
		vectors := mutualVectors(6, 0.8)
		pool := make([]*domain.Artifact, 6)
		ids := make([]string, 6)
		for i, v := range vectors {
			id := string(rune('a' + i))
			pool[i] = poolArtifact(id, v)
			ids[i] = id
		}

		clusters := clusterPool(pool, clusteringConfig())

		require.Len(t, clusters, 1)
		assert.ElementsMatch(t, ids, clusters[0].ArtifactIDs)
		assert.Equal(t, domain.SuggestedActionCreateFolder, clusters[0].SuggestedAction)
		assert.InDelta(t, 0.8, clusters[0].Coherence, 1e-4)
		assert.Len(t, clusters[0].Centroid, 7)
	})

	t.Run("links members to the seed, not to each other", func(t *testing.T) {
		// b is close to seed a; c is close to b but far from a. Single-link
		// to the seed leaves c out, and as a singleton it is discarded.
		a := []float32{1, 0, 0}
		b := unitVec3(0.8)
		c := []float32{0, 1, 0}

		pool := []*domain.Artifact{
			poolArtifact("a", a),
			poolArtifact("b", b),
			poolArtifact("c", c),
		}

		clusters := clusterPool(pool, clusteringConfig())

		require.Len(t, clusters, 1)
		assert.Equal(t, []string{"a", "b"}, clusters[0].ArtifactIDs)
	})

	t.Run("small clusters suggest route_together", func(t *testing.T) {
		vectors := mutualVectors(3, 0.9)
		pool := []*domain.Artifact{
			poolArtifact("a", vectors[0]),
			poolArtifact("b", vectors[1]),
			poolArtifact("c", vectors[2]),
		}

		clusters := clusterPool(pool, clusteringConfig())

		require.Len(t, clusters, 1)
		assert.Equal(t, domain.SuggestedActionRouteTogether, clusters[0].SuggestedAction)
	})

	t.Run("singletons are discarded", func(t *testing.T) {
		pool := []*domain.Artifact{
			poolArtifact("a", []float32{1, 0}),
			poolArtifact("b", []float32{0, 1}),
		}

		assert.Empty(t, clusterPool(pool, clusteringConfig()))
	})

	t.Run("empty and single-member pools produce no clusters", func(t *testing.T) {
		assert.Empty(t, clusterPool(nil, clusteringConfig()))
		assert.Empty(t, clusterPool([]*domain.Artifact{poolArtifact("a", []float32{1, 0})}, clusteringConfig()))
	})
}

// unitVec3 returns a 3d unit vector with cosine c against (1, 0, 0).
func unitVec3(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(math.Max(0, 1-c*c))), 0}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "distributed-tracing-basics", slugify("Distributed Tracing Basics"))
	assert.Equal(t, "grpc-vs-rest", slugify("gRPC vs. REST!"))
	assert.Equal(t, "", slugify("!!!"))
}

func TestClusteringService_Promote(t *testing.T) {
	ctx := context.Background()

	newService := func(artifacts *MockArtifactRepository, folders *MockFolderRepository) *ClusteringService {
		txRunner := &fakeTxRunner{artifacts: artifacts, folders: folders}
		cache := NewFolderCache(folders, cacheConfig())
		return NewClusteringService(artifacts, txRunner, cache, NewFolderLocks(), clusteringConfig(), scoringConfig())
	}

	t.Run("creates a provisional folder and moves members in", func(t *testing.T) {
		vectors := mutualVectors(5, 0.9)
		seed := poolArtifact("a", vectors[0])
		seed.Title = "Distributed Tracing Basics"

		artifacts := new(MockArtifactRepository)
		folders := new(MockFolderRepository)

		artifacts.On("GetByID", mock.Anything, "a").Return(seed, nil)
		for i, id := range []string{"b", "c", "d", "e"} {
			artifacts.On("GetByID", mock.Anything, id).Return(poolArtifact(id, vectors[i+1]), nil)
		}
		folders.On("GetByPath", mock.Anything, "distributed-tracing-basics").Return(nil, domain.ErrFolderNotFound)
		folders.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.Folder) bool {
			return f.Path == "distributed-tracing-basics" && f.Provisional
		})).Return(nil)
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			artifacts.On("UpdatePlacement", mock.Anything, id, "distributed-tracing-basics", []string(nil)).Return(nil)
		}
		folders.On("UpdateDerived", mock.Anything, "distributed-tracing-basics", mock.Anything, mock.Anything, 5).Return(nil)

		service := newService(artifacts, folders)
		cluster := &domain.ConceptCluster{
			ArtifactIDs:     []string{"a", "b", "c", "d", "e"},
			Coherence:       0.9,
			SuggestedAction: domain.SuggestedActionCreateFolder,
		}

		path, err := service.Promote(ctx, cluster)

		require.NoError(t, err)
		assert.Equal(t, "distributed-tracing-basics", path)
		artifacts.AssertExpectations(t)
		folders.AssertExpectations(t)
	})

	t.Run("suffixes the folder path on collision", func(t *testing.T) {
		vectors := mutualVectors(2, 0.9)
		seed := poolArtifact("a", vectors[0])
		seed.Title = "Caching"

		artifacts := new(MockArtifactRepository)
		folders := new(MockFolderRepository)

		artifacts.On("GetByID", mock.Anything, "a").Return(seed, nil)
		artifacts.On("GetByID", mock.Anything, "b").Return(poolArtifact("b", vectors[1]), nil)
		folders.On("GetByPath", mock.Anything, "caching").Return(&domain.Folder{Path: "caching"}, nil)
		folders.On("GetByPath", mock.Anything, "caching-2").Return(nil, domain.ErrFolderNotFound)
		folders.On("Create", mock.Anything, mock.Anything).Return(nil)
		artifacts.On("UpdatePlacement", mock.Anything, mock.Anything, "caching-2", []string(nil)).Return(nil)
		folders.On("UpdateDerived", mock.Anything, "caching-2", mock.Anything, mock.Anything, 2).Return(nil)

		service := newService(artifacts, folders)
		cluster := &domain.ConceptCluster{
			ArtifactIDs:     []string{"a", "b"},
			Coherence:       0.9,
			SuggestedAction: domain.SuggestedActionCreateFolder,
		}

		path, err := service.Promote(ctx, cluster)

		require.NoError(t, err)
		assert.Equal(t, "caching-2", path)
	})

	t.Run("skips members that raced into another folder", func(t *testing.T) {
		vectors := mutualVectors(3, 0.9)
		seed := poolArtifact("a", vectors[0])
		seed.Title = "Queues"
		placed := poolArtifact("b", vectors[1])
		placed.FolderPath = "elsewhere"

		artifacts := new(MockArtifactRepository)
		folders := new(MockFolderRepository)

		artifacts.On("GetByID", mock.Anything, "a").Return(seed, nil)
		artifacts.On("GetByID", mock.Anything, "b").Return(placed, nil)
		artifacts.On("GetByID", mock.Anything, "c").Return(poolArtifact("c", vectors[2]), nil)
		folders.On("GetByPath", mock.Anything, "queues").Return(nil, domain.ErrFolderNotFound)
		folders.On("Create", mock.Anything, mock.Anything).Return(nil)
		artifacts.On("UpdatePlacement", mock.Anything, "a", "queues", []string(nil)).Return(nil)
		artifacts.On("UpdatePlacement", mock.Anything, "c", "queues", []string(nil)).Return(nil)
		folders.On("UpdateDerived", mock.Anything, "queues", mock.Anything, mock.Anything, 2).Return(nil)

		service := newService(artifacts, folders)
		cluster := &domain.ConceptCluster{
			ArtifactIDs:     []string{"a", "b", "c"},
			Coherence:       0.9,
			SuggestedAction: domain.SuggestedActionCreateFolder,
		}

		_, err := service.Promote(ctx, cluster)

		require.NoError(t, err)
		artifacts.AssertNotCalled(t, "UpdatePlacement", mock.Anything, "b", mock.Anything, mock.Anything)
	})

	t.Run("rejects route_together clusters", func(t *testing.T) {
		service := newService(new(MockArtifactRepository), new(MockFolderRepository))
		cluster := &domain.ConceptCluster{
			ArtifactIDs:     []string{"a", "b"},
			SuggestedAction: domain.SuggestedActionRouteTogether,
		}

		_, err := service.Promote(ctx, cluster)

		assert.Error(t, err)
	})
}
