package service

import (
	"context"
	"errors"

	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/domain"
)

// DuplicateDetector is the ingestion-time (layer 1) duplicate check. It is
// cheap and synchronous: a fingerprint lookup followed by a bounded
// nearest-neighbor search, with no LLM calls. It runs before any routing
// decision so duplicate content never pays distillation cost twice or
// inflates folder member counts.
type DuplicateDetector struct {
	artifacts ArtifactRepositoryInterface
	cfg       config.VectorConfig
}

// NewDuplicateDetector creates a new DuplicateDetector instance
func NewDuplicateDetector(artifacts ArtifactRepositoryInterface, cfg config.VectorConfig) *DuplicateDetector {
	return &DuplicateDetector{
		artifacts: artifacts,
		cfg:       cfg,
	}
}

// Check returns the duplicate verdict for a candidate artifact. An exact
// fingerprint match short-circuits with confidence 1.0; otherwise the
// single best semantic match above the configured threshold is reported
// with the similarity as confidence. A duplicate verdict is a successful
// result, not an error.
func (d *DuplicateDetector) Check(ctx context.Context, fingerprint string, embedding []float32) (*domain.DuplicateCheckResult, error) {
	if len(embedding) == 0 {
		return nil, domain.ErrEmptyEmbedding
	}
	if len(embedding) != d.cfg.Dimensions {
		return nil, domain.ErrDimensionMismatch
	}

	result, err := d.CheckExact(ctx, fingerprint)
	if err != nil || result.IsDuplicate {
		return result, err
	}

	return d.CheckSemantic(ctx, embedding)
}

// CheckExact runs only the fingerprint layer. It needs no embedding, so
// ingestion can reject a verbatim resubmission before paying for any
// collaborator call.
func (d *DuplicateDetector) CheckExact(ctx context.Context, fingerprint string) (*domain.DuplicateCheckResult, error) {
	existing, err := d.artifacts.GetByFingerprint(ctx, fingerprint)
	if err != nil && !errors.Is(err, domain.ErrArtifactNotFound) {
		return nil, err
	}
	if existing != nil {
		return domain.ExactDuplicate(existing.ID), nil
	}
	return domain.NotDuplicate(), nil
}

// CheckSemantic runs only the nearest-neighbor layer.
func (d *DuplicateDetector) CheckSemantic(ctx context.Context, embedding []float32) (*domain.DuplicateCheckResult, error) {
	if len(embedding) == 0 {
		return nil, domain.ErrEmptyEmbedding
	}
	if len(embedding) != d.cfg.Dimensions {
		return nil, domain.ErrDimensionMismatch
	}

	neighbors, err := d.artifacts.NearestNeighbors(ctx, embedding, d.cfg.DuplicateSearchLimit, d.cfg.DuplicateSearchFloor)
	if err != nil {
		return nil, err
	}

	// Neighbors arrive best first; only the top match can clear the
	// semantic threshold.
	if len(neighbors) > 0 && neighbors[0].Similarity >= d.cfg.SemanticDuplicateThreshold {
		return domain.SemanticDuplicate(neighbors[0].ArtifactID, neighbors[0].Similarity), nil
	}

	return domain.NotDuplicate(), nil
}
