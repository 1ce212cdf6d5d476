package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/similarity"
	"github.com/cloo-solutions/curioai/internal/telemetry"
)

// CleanupService is the folder-expansion-time (layer 2) duplicate pass.
// Unlike the ingestion-time detector it is allowed to be expensive: it
// builds the full pairwise similarity graph of one folder's members and
// may call the merge-naming collaborator for every merged group.
type CleanupService struct {
	artifacts  ArtifactRepositoryInterface
	folders    FolderRepositoryInterface
	distiller  Distiller
	txRunner   TxRunner
	cache      *FolderCache
	locks      *FolderLocks
	cfg        config.BatchConfig
	scoringCfg config.FolderScoringConfig
}

// NewCleanupService creates a new CleanupService instance. The lock arena
// must be the same instance handed to routing and clustering.
func NewCleanupService(
	artifacts ArtifactRepositoryInterface,
	folders FolderRepositoryInterface,
	distiller Distiller,
	txRunner TxRunner,
	cache *FolderCache,
	locks *FolderLocks,
	cfg config.BatchConfig,
	scoringCfg config.FolderScoringConfig,
) *CleanupService {
	return &CleanupService{
		artifacts:  artifacts,
		folders:    folders,
		distiller:  distiller,
		txRunner:   txRunner,
		cache:      cache,
		locks:      locks,
		cfg:        cfg,
		scoringCfg: scoringCfg,
	}
}

// CleanupResult reports one cleanup pass over a folder. Failures are
// per-group; a failed group never aborts its siblings.
type CleanupResult struct {
	FolderPath string
	Groups     []domain.MergeGroup
	Merges     []domain.MergeRecord
	Failures   []CleanupFailure
}

// CleanupFailure records one merge group that could not be collapsed.
type CleanupFailure struct {
	ArtifactIDs []string
	Error       string
}

// CleanupFolder finds candidate-duplicate groups among a folder's members
// and collapses the ones classified as merge. Each merge is atomic: the
// survivor is renamed and all absorbed members removed in one transaction,
// or the group is left untouched. Running cleanup twice without new
// members produces zero additional merges.
func (s *CleanupService) CleanupFolder(ctx context.Context, folderPath string) (*CleanupResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "CleanupService.CleanupFolder", telemetry.SpanAttributes{FolderPath: folderPath})
	defer span.End()

	if _, err := s.folders.GetByPath(ctx, folderPath); err != nil {
		span.SetError(err)
		return nil, err
	}

	unlock := s.locks.Lock(folderPath)
	defer unlock()

	members, err := s.artifacts.ListByFolder(ctx, folderPath)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	groups := buildMergeGroups(members, s.cfg)
	result := &CleanupResult{FolderPath: folderPath, Groups: groups}

	for _, group := range groups {
		if group.RecommendedAction != domain.MergeActionMerge {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := s.mergeGroup(ctx, folderPath, group, members)
		if err != nil {
			result.Failures = append(result.Failures, CleanupFailure{
				ArtifactIDs: group.ArtifactIDs,
				Error:       err.Error(),
			})
			continue
		}
		result.Merges = append(result.Merges, *record)
	}

	s.cache.Invalidate(folderPath)
	return result, nil
}

// mergeGroup collapses one group into its earliest-created member. The
// merge-naming call happens before the transaction so a collaborator
// failure leaves the folder untouched.
func (s *CleanupService) mergeGroup(ctx context.Context, folderPath string, group domain.MergeGroup, members []*domain.Artifact) (*domain.MergeRecord, error) {
	if len(group.ArtifactIDs) < 2 {
		return nil, domain.ErrMergeGroupTooSmall
	}

	byID := make(map[string]*domain.Artifact, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	sources := make([]string, 0, len(group.ArtifactIDs))
	for _, id := range group.ArtifactIDs {
		artifact, ok := byID[id]
		if !ok {
			return nil, domain.ErrArtifactNotInFolder
		}
		sources = append(sources, artifact.SourceText)
	}

	named, err := s.distiller.NameMerge(ctx, sources)
	if err != nil {
		return nil, err
	}

	// Group ids preserve the folder's creation order; the earliest
	// member survives by convention.
	survivorID := group.ArtifactIDs[0]
	absorbedIDs := group.ArtifactIDs[1:]

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Artifacts().UpdateTitleSummary(ctx, survivorID, named.Title, named.Summary); err != nil {
			return err
		}
		for _, id := range absorbedIDs {
			if err := repos.Artifacts().Delete(ctx, id); err != nil {
				return err
			}
		}

		remaining, err := repos.Artifacts().ListByFolder(ctx, folderPath)
		if err != nil {
			return err
		}
		vectors := make([][]float32, len(remaining))
		for i, m := range remaining {
			vectors[i] = m.Embedding
		}
		centroid := similarity.Centroid(vectors)
		exemplars := capExemplars(vectors, s.scoringCfg.ExemplarCap)

		return repos.Folders().UpdateDerived(ctx, folderPath, centroid, exemplars, len(remaining))
	})
	if err != nil {
		return nil, err
	}

	return &domain.MergeRecord{
		SurvivorID:  survivorID,
		AbsorbedIDs: absorbedIDs,
		Title:       named.Title,
		Summary:     named.Summary,
		MergedAt:    time.Now().UTC(),
	}, nil
}

// buildMergeGroups links every member pair above the merge threshold and
// takes connected components of the resulting graph as candidate groups.
// The linkage is transitive, unlike the clustering pass: the question here
// is "are these all essentially the same idea", not topical similarity.
func buildMergeGroups(members []*domain.Artifact, cfg config.BatchConfig) []domain.MergeGroup {
	n := len(members)
	if n < 2 {
		return nil
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		parent[find(i)] = find(j)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim, ok := similarity.Cosine(members[i].Embedding, members[j].Embedding)
			if ok && sim > cfg.MergeThreshold {
				union(i, j)
			}
		}
	}

	componentIdx := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := find(i)
		componentIdx[root] = append(componentIdx[root], i)
	}

	var groups []domain.MergeGroup
	// Iterate members in order so group output is deterministic.
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		root := find(i)
		if seen[root] {
			continue
		}
		seen[root] = true

		idxs := componentIdx[root]
		if len(idxs) < 2 {
			continue
		}

		ids := make([]string, len(idxs))
		vectors := make([][]float32, len(idxs))
		for k, idx := range idxs {
			ids[k] = members[idx].ID
			vectors[k] = members[idx].Embedding
		}

		mean, variance := pairwiseStats(vectors)
		groups = append(groups, domain.MergeGroup{
			ArtifactIDs:       ids,
			MeanSimilarity:    mean,
			Variance:          variance,
			RecommendedAction: classifyMergeGroup(mean, variance, cfg),
		})
	}

	return groups
}

// classifyMergeGroup decides what to do with a candidate group. A group
// whose mean pairwise similarity clears the threshold with low variance
// merges; one whose mean falls below the threshold was linked through an
// outlier pair and stays separate; anything in between goes to manual
// review.
func classifyMergeGroup(mean, variance float64, cfg config.BatchConfig) domain.MergeAction {
	if mean >= cfg.MergeThreshold && variance <= cfg.MergeVarianceLimit {
		return domain.MergeActionMerge
	}
	if mean < cfg.MergeThreshold {
		return domain.MergeActionKeepSeparate
	}
	return domain.MergeActionManualReview
}

func pairwiseStats(vectors [][]float32) (mean, variance float64) {
	var sims []float64
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sim, ok := similarity.Cosine(vectors[i], vectors[j])
			if !ok {
				sim = 0
			}
			sims = append(sims, sim)
		}
	}
	if len(sims) == 0 {
		return 0, 0
	}

	var sum float64
	for _, s := range sims {
		sum += s
	}
	mean = sum / float64(len(sims))

	var sq float64
	for _, s := range sims {
		d := s - mean
		sq += d * d
	}
	variance = sq / float64(len(sims))

	return mean, variance
}
