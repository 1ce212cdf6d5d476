package service

import (
	"context"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/pagination"
	"github.com/cloo-solutions/curioai/internal/telemetry"
)

// QueryService serves the read side of the API: artifact lookups, listings
// and folder browsing. It never mutates state.
type QueryService struct {
	artifacts ArtifactRepositoryInterface
	folders   FolderRepositoryInterface
}

// NewQueryService creates a new QueryService instance
func NewQueryService(artifacts ArtifactRepositoryInterface, folders FolderRepositoryInterface) *QueryService {
	return &QueryService{artifacts: artifacts, folders: folders}
}

// GetArtifact returns one artifact by id.
func (s *QueryService) GetArtifact(ctx context.Context, id string) (*domain.Artifact, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.GetArtifact", telemetry.SpanAttributes{
		ArtifactID: id,
		Operation:  "get",
	})
	defer span.End()

	return s.artifacts.GetByID(ctx, id)
}

type ListArtifactsInput struct {
	Cursor       string
	Limit        int
	UnsortedOnly bool
}

type ListArtifactsOutput struct {
	Items   []*domain.Artifact
	Cursor  string
	HasMore bool
}

// ListArtifacts returns one page of artifacts, newest first.
func (s *QueryService) ListArtifacts(ctx context.Context, input ListArtifactsInput) (*ListArtifactsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.ListArtifacts", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.artifacts.ListWithCursor(ctx, cursor, limit, input.UnsortedOnly)
	if err != nil {
		return nil, err
	}

	return &ListArtifactsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// ListFolders returns every folder in the taxonomy, path-ordered.
func (s *QueryService) ListFolders(ctx context.Context) ([]*domain.Folder, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.ListFolders", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	return s.folders.List(ctx)
}
