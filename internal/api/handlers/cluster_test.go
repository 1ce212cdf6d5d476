package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/service"
)

// MockClusterScanner is a mock implementation of ClusterScanner
type MockClusterScanner struct {
	mock.Mock
}

func (m *MockClusterScanner) ScanAndPromote(ctx context.Context, promote bool) (*service.ClusterScanResult, error) {
	args := m.Called(ctx, promote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ClusterScanResult), args.Error(1)
}

func TestClusterHandler_Scan(t *testing.T) {
	t.Run("reports clusters without promoting by default", func(t *testing.T) {
		scanner := new(MockClusterScanner)
		scanner.On("ScanAndPromote", mock.Anything, false).Return(&service.ClusterScanResult{
			Clusters: []domain.ConceptCluster{{
				ArtifactIDs:     []string{"a", "b", "c", "d", "e"},
				Coherence:       0.8,
				SuggestedAction: domain.SuggestedActionCreateFolder,
			}},
		}, nil)

		handler := NewClusterHandler(scanner)

		req := httptest.NewRequest(http.MethodPost, "/clusters/scan", nil)
		w := httptest.NewRecorder()
		handler.Scan(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data ClusterScanResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Clusters, 1)
		assert.Equal(t, "create_folder", resp.Data.Clusters[0].SuggestedAction)
		assert.Empty(t, resp.Data.Promoted)
	})

	t.Run("promotes when asked", func(t *testing.T) {
		scanner := new(MockClusterScanner)
		scanner.On("ScanAndPromote", mock.Anything, true).Return(&service.ClusterScanResult{
			Promoted: []string{"new-topic"},
		}, nil)

		handler := NewClusterHandler(scanner)

		req := postJSON(t, "/clusters/scan", ScanClustersRequest{Promote: true})
		w := httptest.NewRecorder()
		handler.Scan(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data ClusterScanResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"new-topic"}, resp.Data.Promoted)
	})

	t.Run("maps scan failures to 500", func(t *testing.T) {
		scanner := new(MockClusterScanner)
		scanner.On("ScanAndPromote", mock.Anything, false).
			Return(nil, domain.NewDomainError(domain.ErrCodeInternalError, "scan failed"))

		handler := NewClusterHandler(scanner)

		req := httptest.NewRequest(http.MethodPost, "/clusters/scan", nil)
		w := httptest.NewRecorder()
		handler.Scan(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
