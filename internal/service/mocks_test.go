package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/pagination"
)

// MockArtifactRepository is a mock implementation of ArtifactRepositoryInterface
type MockArtifactRepository struct {
	mock.Mock
}

func (m *MockArtifactRepository) Create(ctx context.Context, a *domain.Artifact) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockArtifactRepository) GetByID(ctx context.Context, id string) (*domain.Artifact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Artifact, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) NearestNeighbors(ctx context.Context, embedding []float32, limit int, minSimilarity float64) ([]domain.Neighbor, error) {
	args := m.Called(ctx, embedding, limit, minSimilarity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Neighbor), args.Error(1)
}

func (m *MockArtifactRepository) ListUnsorted(ctx context.Context, limit int) ([]*domain.Artifact, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) ListByFolder(ctx context.Context, folderPath string) ([]*domain.Artifact, error) {
	args := m.Called(ctx, folderPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int, unsortedOnly bool) (*ArtifactPageResult, error) {
	args := m.Called(ctx, cursor, limit, unsortedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ArtifactPageResult), args.Error(1)
}

func (m *MockArtifactRepository) UpdatePlacement(ctx context.Context, id, folderPath string, crossLinks []string) error {
	args := m.Called(ctx, id, folderPath, crossLinks)
	return args.Error(0)
}

func (m *MockArtifactRepository) UpdateTitleSummary(ctx context.Context, id, title, summary string) error {
	args := m.Called(ctx, id, title, summary)
	return args.Error(0)
}

func (m *MockArtifactRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockFolderRepository is a mock implementation of FolderRepositoryInterface
type MockFolderRepository struct {
	mock.Mock
}

func (m *MockFolderRepository) Create(ctx context.Context, f *domain.Folder) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFolderRepository) GetByPath(ctx context.Context, path string) (*domain.Folder, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Folder), args.Error(1)
}

func (m *MockFolderRepository) List(ctx context.Context) ([]*domain.Folder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Folder), args.Error(1)
}

func (m *MockFolderRepository) ListBySize(ctx context.Context, minMembers int) ([]*domain.Folder, error) {
	args := m.Called(ctx, minMembers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Folder), args.Error(1)
}

func (m *MockFolderRepository) UpdateDerived(ctx context.Context, path string, centroid []float32, exemplars [][]float32, memberCount int) error {
	args := m.Called(ctx, path, centroid, exemplars, memberCount)
	return args.Error(0)
}

func (m *MockFolderRepository) MarkStable(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// MockDistiller is a mock implementation of Distiller
type MockDistiller struct {
	mock.Mock
}

func (m *MockDistiller) Distill(ctx context.Context, text string) (*DistillResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DistillResult), args.Error(1)
}

func (m *MockDistiller) NameMerge(ctx context.Context, sources []string) (*DistillResult, error) {
	args := m.Called(ctx, sources)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DistillResult), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockUUIDGenerator returns a fixed sequence of ids, then "default-uuid".
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

// fakeTxRunner runs the transaction body directly against the given mocks,
// without transactional semantics. Unit tests assert the calls the body
// makes; rollback behavior is covered by the integration tests.
type fakeTxRunner struct {
	artifacts ArtifactRepositoryInterface
	folders   FolderRepositoryInterface
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(fakeTxRepos{r})
}

type fakeTxRepos struct {
	runner *fakeTxRunner
}

func (t fakeTxRepos) Artifacts() ArtifactRepositoryInterface { return t.runner.artifacts }
func (t fakeTxRepos) Folders() FolderRepositoryInterface     { return t.runner.folders }
