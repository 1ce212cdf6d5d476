package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/telemetry"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestInput is one raw fragment submitted for filing. Embedding is
// optional; when absent the configured embedding client produces one.
type IngestInput struct {
	SourceText string
	Embedding  []float32
}

// IngestResult pairs the stored artifact with its verdict. For rejected
// duplicates the artifact is nil; nothing was distilled or persisted and
// the verdict points at the surviving artifact.
type IngestResult struct {
	Artifact *domain.Artifact
	Verdict  *domain.RoutingVerdict
}

// IngestService runs the ingestion pipeline: duplicate check, distill,
// route.
type IngestService struct {
	distiller  Distiller
	embedder   EmbeddingClient
	detector   *DuplicateDetector
	router     *RoutingService
	uuidGen    UUIDGenerator
	dimensions int
}

// NewIngestService creates a new IngestService instance
func NewIngestService(distiller Distiller, embedder EmbeddingClient, detector *DuplicateDetector, router *RoutingService, dimensions int) *IngestService {
	return &IngestService{
		distiller:  distiller,
		embedder:   embedder,
		detector:   detector,
		router:     router,
		uuidGen:    &DefaultUUIDGenerator{},
		dimensions: dimensions,
	}
}

// NewIngestServiceWithUUIDGen creates an IngestService with a custom UUID
// generator for testing.
func NewIngestServiceWithUUIDGen(distiller Distiller, embedder EmbeddingClient, detector *DuplicateDetector, router *RoutingService, dimensions int, uuidGen UUIDGenerator) *IngestService {
	s := NewIngestService(distiller, embedder, detector, router, dimensions)
	s.uuidGen = uuidGen
	return s
}

// Ingest processes one fragment end to end. The steps run in order of
// increasing cost: the fingerprint check needs nothing but the text, the
// semantic check needs the embedding, and distillation runs last so
// duplicate content never pays an LLM call.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	text := strings.TrimSpace(input.SourceText)
	if text == "" {
		return nil, domain.ErrEmptySourceText
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{})
	defer span.End()

	id := s.uuidGen.NewString()

	dup, err := s.detector.CheckExact(ctx, domain.Fingerprint(text))
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if dup.IsDuplicate {
		return rejectedResult(id, dup)
	}

	embedding := input.Embedding
	if len(embedding) == 0 {
		embedding, err = s.embedder.GenerateEmbedding(ctx, text)
		if err != nil {
			span.SetError(err)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeCollaborator, "embedding call failed", err)
		}
	}
	if len(embedding) != s.dimensions {
		return nil, domain.ErrDimensionMismatch
	}

	dup, err = s.detector.CheckSemantic(ctx, embedding)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if dup.IsDuplicate {
		return rejectedResult(id, dup)
	}

	distilled, err := s.distiller.Distill(ctx, text)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	artifact := domain.NewArtifact(
		id,
		distilled.Title,
		distilled.Summary,
		text,
		embedding,
		time.Now().UTC(),
	)

	verdict, err := s.router.Route(ctx, artifact)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if verdict.Outcome == domain.RoutingOutcomeRejectedDuplicate {
		// A matching artifact landed between the pre-check and the commit.
		return &IngestResult{Verdict: verdict}, nil
	}

	return &IngestResult{Artifact: artifact, Verdict: verdict}, nil
}

func rejectedResult(artifactID string, dup *domain.DuplicateCheckResult) (*IngestResult, error) {
	verdict := &domain.RoutingVerdict{
		ArtifactID:  artifactID,
		Outcome:     domain.RoutingOutcomeRejectedDuplicate,
		DuplicateOf: dup.MatchedID,
	}
	if err := domain.ValidateRoutingVerdict(verdict); err != nil {
		return nil, err
	}
	return &IngestResult{Verdict: verdict}, nil
}

// Check runs the duplicate check for a fragment without ingesting it. The
// fragment is fingerprinted and embedded exactly as Ingest would, so the
// answer predicts what Ingest would decide.
func (s *IngestService) Check(ctx context.Context, input IngestInput) (*domain.DuplicateCheckResult, error) {
	text := strings.TrimSpace(input.SourceText)
	if text == "" {
		return nil, domain.ErrEmptySourceText
	}

	embedding := input.Embedding
	if len(embedding) == 0 {
		var err error
		embedding, err = s.embedder.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeCollaborator, "embedding call failed", err)
		}
	}
	if len(embedding) != s.dimensions {
		return nil, domain.ErrDimensionMismatch
	}

	return s.detector.Check(ctx, domain.Fingerprint(text), embedding)
}
