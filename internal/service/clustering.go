package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/similarity"
	"github.com/cloo-solutions/curioai/internal/telemetry"
)

// ClusteringService groups unsorted artifacts into coherent clusters and
// promotes create_folder suggestions into real folders.
type ClusteringService struct {
	artifacts  ArtifactRepositoryInterface
	txRunner   TxRunner
	cache      *FolderCache
	locks      *FolderLocks
	cfg        config.ClusteringConfig
	scoringCfg config.FolderScoringConfig
}

// NewClusteringService creates a new ClusteringService instance. The lock
// arena must be the same instance handed to routing and cleanup.
func NewClusteringService(
	artifacts ArtifactRepositoryInterface,
	txRunner TxRunner,
	cache *FolderCache,
	locks *FolderLocks,
	cfg config.ClusteringConfig,
	scoringCfg config.FolderScoringConfig,
) *ClusteringService {
	return &ClusteringService{
		artifacts:  artifacts,
		txRunner:   txRunner,
		cache:      cache,
		locks:      locks,
		cfg:        cfg,
		scoringCfg: scoringCfg,
	}
}

// ClusterScanResult reports one clustering pass over the unsorted pool.
type ClusterScanResult struct {
	Clusters []domain.ConceptCluster
	Promoted []string // folder paths created from create_folder clusters
	Failures []ClusterFailure
}

// ClusterFailure records one cluster that could not be promoted. Failures
// are isolated per cluster and never abort sibling promotions.
type ClusterFailure struct {
	ArtifactIDs []string
	Error       string
}

// FindClusters runs one clustering pass over the unsorted pool without
// acting on the suggestions.
func (s *ClusteringService) FindClusters(ctx context.Context) ([]domain.ConceptCluster, error) {
	ctx, span := telemetry.StartSpan(ctx, "ClusteringService.FindClusters", telemetry.SpanAttributes{})
	defer span.End()

	pool, err := s.artifacts.ListUnsorted(ctx, s.cfg.MaxPoolSize)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return clusterPool(pool, s.cfg), nil
}

// ScanAndPromote runs a clustering pass and, when promote is set, creates
// a folder for every create_folder cluster and places its members there.
// Each promotion is an independently committed unit of work so the pass
// can be cancelled mid-batch without leaving a half-promoted cluster.
func (s *ClusteringService) ScanAndPromote(ctx context.Context, promote bool) (*ClusterScanResult, error) {
	clusters, err := s.FindClusters(ctx)
	if err != nil {
		return nil, err
	}

	result := &ClusterScanResult{Clusters: clusters}
	if !promote {
		return result, nil
	}

	for i := range clusters {
		cluster := &clusters[i]
		if cluster.SuggestedAction != domain.SuggestedActionCreateFolder {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		path, err := s.Promote(ctx, cluster)
		if err != nil {
			result.Failures = append(result.Failures, ClusterFailure{
				ArtifactIDs: cluster.ArtifactIDs,
				Error:       err.Error(),
			})
			continue
		}
		result.Promoted = append(result.Promoted, path)
	}

	return result, nil
}

// Promote creates a provisional folder for a cluster and moves its members
// in, atomically. The folder is named after the cluster's seed artifact.
func (s *ClusteringService) Promote(ctx context.Context, cluster *domain.ConceptCluster) (string, error) {
	if err := domain.ValidateConceptCluster(cluster); err != nil {
		return "", err
	}
	if cluster.SuggestedAction != domain.SuggestedActionCreateFolder {
		return "", domain.NewDomainError(domain.ErrCodeInvalidOperation, "only create_folder clusters can be promoted")
	}

	ctx, span := telemetry.StartSpan(ctx, "ClusteringService.Promote", telemetry.SpanAttributes{})
	defer span.End()

	seed, err := s.artifacts.GetByID(ctx, cluster.ArtifactIDs[0])
	if err != nil {
		span.SetError(err)
		return "", err
	}

	path, err := s.uniqueFolderPath(ctx, seed.Title)
	if err != nil {
		span.SetError(err)
		return "", err
	}

	unlock := s.locks.Lock(path)
	defer unlock()

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		now := time.Now().UTC()
		folder := domain.NewFolder(path, true, now)
		if err := repos.Folders().Create(ctx, folder); err != nil {
			return err
		}

		members := make([]*domain.Artifact, 0, len(cluster.ArtifactIDs))
		for _, id := range cluster.ArtifactIDs {
			artifact, err := repos.Artifacts().GetByID(ctx, id)
			if err != nil {
				return err
			}
			if !artifact.IsUnsorted() {
				// Raced with a concurrent placement; leave it where it is.
				continue
			}
			if err := repos.Artifacts().UpdatePlacement(ctx, id, path, nil); err != nil {
				return err
			}
			members = append(members, artifact)
		}
		if len(members) < 2 {
			return domain.ErrMergeGroupTooSmall
		}

		vectors := make([][]float32, len(members))
		for i, m := range members {
			vectors[i] = m.Embedding
		}
		centroid := similarity.Centroid(vectors)
		exemplars := capExemplars(vectors, s.scoringCfg.ExemplarCap)

		return repos.Folders().UpdateDerived(ctx, path, centroid, exemplars, len(members))
	})
	if err != nil {
		span.SetError(err)
		return "", err
	}

	s.cache.Invalidate(path)
	return path, nil
}

// clusterPool performs greedy single-link clustering: each unvisited
// artifact seeds a cluster and pulls in every remaining unvisited artifact
// whose similarity to the seed exceeds the threshold. Members are linked
// to the seed, not to each other; ties resolve by iteration order
// (first seed wins). Singleton clusters are discarded.
func clusterPool(pool []*domain.Artifact, cfg config.ClusteringConfig) []domain.ConceptCluster {
	if len(pool) < 2 {
		return nil
	}

	visited := make([]bool, len(pool))
	var clusters []domain.ConceptCluster

	for i := range pool {
		if visited[i] {
			continue
		}
		visited[i] = true
		memberIdx := []int{i}

		for j := i + 1; j < len(pool); j++ {
			if visited[j] {
				continue
			}
			sim, ok := similarity.Cosine(pool[i].Embedding, pool[j].Embedding)
			if ok && sim > cfg.SimilarityThreshold {
				visited[j] = true
				memberIdx = append(memberIdx, j)
			}
		}

		if len(memberIdx) < 2 {
			continue
		}

		ids := make([]string, len(memberIdx))
		vectors := make([][]float32, len(memberIdx))
		for k, idx := range memberIdx {
			ids[k] = pool[idx].ID
			vectors[k] = pool[idx].Embedding
		}

		coherence := similarity.Coherence(vectors)
		action := domain.SuggestedActionRouteTogether
		if len(memberIdx) >= cfg.MinClusterSize && coherence >= cfg.CoherenceFloor {
			action = domain.SuggestedActionCreateFolder
		}

		clusters = append(clusters, domain.ConceptCluster{
			ArtifactIDs:     ids,
			Centroid:        similarity.Centroid(vectors),
			Coherence:       coherence,
			SuggestedAction: action,
		})
	}

	return clusters
}

// uniqueFolderPath derives a top-level folder path from a title, suffixing
// a counter on collision.
func (s *ClusteringService) uniqueFolderPath(ctx context.Context, title string) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "untitled"
	}

	path := base
	for attempt := 2; ; attempt++ {
		_, err := s.cache.Get(ctx, path)
		if errors.Is(err, domain.ErrFolderNotFound) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		path = fmt.Sprintf("%s-%d", base, attempt)
	}
}

func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// capExemplars keeps at most limit vectors, preferring the most recently
// added members (the tail of a creation-ordered list).
func capExemplars(vectors [][]float32, limit int) [][]float32 {
	if limit <= 0 || len(vectors) <= limit {
		return vectors
	}
	return vectors[len(vectors)-limit:]
}
