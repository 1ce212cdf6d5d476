package service

import (
	"context"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/pagination"
)

// ArtifactRepositoryInterface defines the repository interface for artifact
// persistence and vector index operations.
type ArtifactRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Artifact) error
	GetByID(ctx context.Context, id string) (*domain.Artifact, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Artifact, error)
	NearestNeighbors(ctx context.Context, embedding []float32, limit int, minSimilarity float64) ([]domain.Neighbor, error)
	ListUnsorted(ctx context.Context, limit int) ([]*domain.Artifact, error)
	ListByFolder(ctx context.Context, folderPath string) ([]*domain.Artifact, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int, unsortedOnly bool) (*ArtifactPageResult, error)
	UpdatePlacement(ctx context.Context, id, folderPath string, crossLinks []string) error
	UpdateTitleSummary(ctx context.Context, id, title, summary string) error
	Delete(ctx context.Context, id string) error
}

// FolderRepositoryInterface defines the repository interface for folder
// persistence.
type FolderRepositoryInterface interface {
	Create(ctx context.Context, f *domain.Folder) error
	GetByPath(ctx context.Context, path string) (*domain.Folder, error)
	List(ctx context.Context) ([]*domain.Folder, error)
	ListBySize(ctx context.Context, minMembers int) ([]*domain.Folder, error)
	UpdateDerived(ctx context.Context, path string, centroid []float32, exemplars [][]float32, memberCount int) error
	MarkStable(ctx context.Context, path string) error
}

type ArtifactPageResult struct {
	Items      []*domain.Artifact
	NextCursor string
	HasMore    bool
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Artifacts() ArtifactRepositoryInterface
	Folders() FolderRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
