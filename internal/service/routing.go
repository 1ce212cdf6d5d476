package service

import (
	"context"

	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/similarity"
	"github.com/cloo-solutions/curioai/internal/telemetry"
)

// RoutingService decides where a new artifact lands in the taxonomy. The
// pipeline is: duplicate check, candidate scoring, threshold decision,
// then a single commit at the end. Nothing is persisted for rejected
// duplicates.
type RoutingService struct {
	detector *DuplicateDetector
	scorer   *FolderScorer
	cache    *FolderCache
	txRunner TxRunner
	locks    *FolderLocks
	cfg      config.RoutingConfig
	scoring  config.FolderScoringConfig
}

// NewRoutingService creates a new RoutingService instance. The lock arena
// must be the same instance handed to clustering and cleanup.
func NewRoutingService(
	detector *DuplicateDetector,
	scorer *FolderScorer,
	cache *FolderCache,
	txRunner TxRunner,
	locks *FolderLocks,
	cfg config.RoutingConfig,
	scoringCfg config.FolderScoringConfig,
) *RoutingService {
	return &RoutingService{
		detector: detector,
		scorer:   scorer,
		cache:    cache,
		txRunner: txRunner,
		locks:    locks,
		cfg:      cfg,
		scoring:  scoringCfg,
	}
}

// Route runs the full routing pipeline for a not-yet-persisted artifact
// and commits the outcome. The artifact's FolderPath and CrossLinks are
// set before it is stored, so a reader never observes a placed artifact
// without its links.
func (s *RoutingService) Route(ctx context.Context, artifact *domain.Artifact) (*domain.RoutingVerdict, error) {
	ctx, span := telemetry.StartSpan(ctx, "RoutingService.Route", telemetry.SpanAttributes{ArtifactID: artifact.ID})
	defer span.End()

	if err := domain.ValidateArtifact(artifact); err != nil {
		span.SetError(err)
		return nil, err
	}

	// Ingest already checked for duplicates before distilling; this
	// re-check closes the window between that check and the commit.
	dup, err := s.detector.Check(ctx, artifact.Fingerprint, artifact.Embedding)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if dup.IsDuplicate {
		return &domain.RoutingVerdict{
			ArtifactID:  artifact.ID,
			Outcome:     domain.RoutingOutcomeRejectedDuplicate,
			DuplicateOf: dup.MatchedID,
		}, nil
	}

	folders, err := s.cache.List(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	scores := s.scorer.Rank(artifact.Embedding, folders, s.cfg.MaxFolderDepth)
	verdict := s.decide(artifact.ID, scores)
	if err := domain.ValidateRoutingVerdict(verdict); err != nil {
		span.SetError(err)
		return nil, err
	}

	if err := s.commit(ctx, artifact, verdict); err != nil {
		span.SetError(err)
		return nil, err
	}

	return verdict, nil
}

// decide applies the confidence thresholds to a ranked candidate list.
// Cross-link evaluation is independent of the confidence band: runner-up
// folders within the delta band of the winner that also clear the floor
// are recorded even when the primary placement is only flagged for review.
func (s *RoutingService) decide(artifactID string, scores []FolderScore) *domain.RoutingVerdict {
	verdict := &domain.RoutingVerdict{
		ArtifactID: artifactID,
		Outcome:    domain.RoutingOutcomePooledUnsorted,
	}
	if len(scores) == 0 {
		return verdict
	}

	top := scores[0]
	switch {
	case top.Score >= s.cfg.HighConfidenceThreshold:
		verdict.Outcome = domain.RoutingOutcomePlaced
		verdict.FolderPath = top.Path
		verdict.Score = top.Score
		verdict.CrossLinks = s.crossLinks(top, scores[1:])
	case top.Score >= s.cfg.LowConfidenceThreshold:
		// Plausible but not confident. Surface the best candidate so a
		// reviewer can confirm or override.
		verdict.Outcome = domain.RoutingOutcomeNeedsReview
		verdict.FolderPath = top.Path
		verdict.Score = top.Score
		verdict.CrossLinks = s.crossLinks(top, scores[1:])
	default:
		// Below the low band the best match is noise; the artifact waits
		// in the unsorted pool for the clustering pass.
		verdict.Score = top.Score
	}

	return verdict
}

func (s *RoutingService) crossLinks(winner FolderScore, runnersUp []FolderScore) []domain.CrossLink {
	var links []domain.CrossLink
	for _, candidate := range runnersUp {
		if len(links) >= s.cfg.MaxCrossLinks {
			break
		}
		if winner.Score-candidate.Score > s.cfg.CrossLinkDelta {
			break // ranked, nothing further can be in the band
		}
		if candidate.Score < s.cfg.CrossLinkMinScore {
			continue
		}
		links = append(links, domain.CrossLink{
			FolderPath: candidate.Path,
			Score:      candidate.Score,
		})
	}
	return links
}

// commit persists the artifact per the verdict. Placement updates the
// target folder's derived state in the same transaction as the artifact
// insert, under the folder's lock.
func (s *RoutingService) commit(ctx context.Context, artifact *domain.Artifact, verdict *domain.RoutingVerdict) error {
	if verdict.Outcome != domain.RoutingOutcomePlaced {
		artifact.FolderPath = ""
		artifact.CrossLinks = nil
		return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			return repos.Artifacts().Create(ctx, artifact)
		})
	}

	artifact.FolderPath = verdict.FolderPath
	artifact.CrossLinks = make([]string, len(verdict.CrossLinks))
	for i, link := range verdict.CrossLinks {
		artifact.CrossLinks[i] = link.FolderPath
	}

	unlock := s.locks.Lock(verdict.FolderPath)
	defer unlock()

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Artifacts().Create(ctx, artifact); err != nil {
			return err
		}

		members, err := repos.Artifacts().ListByFolder(ctx, verdict.FolderPath)
		if err != nil {
			return err
		}
		vectors := make([][]float32, len(members))
		for i, m := range members {
			vectors[i] = m.Embedding
		}
		centroid := similarity.Centroid(vectors)
		exemplars := capExemplars(vectors, s.scoring.ExemplarCap)

		return repos.Folders().UpdateDerived(ctx, verdict.FolderPath, centroid, exemplars, len(members))
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(verdict.FolderPath)
	return nil
}
