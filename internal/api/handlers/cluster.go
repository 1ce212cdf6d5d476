package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/curioai/internal/api"
	"github.com/cloo-solutions/curioai/internal/service"
)

type ClusterScanner interface {
	ScanAndPromote(ctx context.Context, promote bool) (*service.ClusterScanResult, error)
}

type ClusterHandler struct {
	scanner ClusterScanner
}

func NewClusterHandler(scanner ClusterScanner) *ClusterHandler {
	return &ClusterHandler{scanner: scanner}
}

type ScanClustersRequest struct {
	Promote bool `json:"promote"`
}

type ClusterResponse struct {
	ArtifactIDs     []string `json:"artifact_ids"`
	Coherence       float64  `json:"coherence"`
	SuggestedAction string   `json:"suggested_action"`
}

type ClusterScanResponse struct {
	Clusters []ClusterResponse        `json:"clusters"`
	Promoted []string                 `json:"promoted,omitempty"`
	Failures []CleanupFailureResponse `json:"failures,omitempty"`
}

func (h *ClusterHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanClustersRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.scanner.ScanAndPromote(r.Context(), req.Promote)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ClusterScanResponse{
		Clusters: make([]ClusterResponse, 0, len(result.Clusters)),
		Promoted: result.Promoted,
	}
	for _, cluster := range result.Clusters {
		resp.Clusters = append(resp.Clusters, ClusterResponse{
			ArtifactIDs:     cluster.ArtifactIDs,
			Coherence:       cluster.Coherence,
			SuggestedAction: string(cluster.SuggestedAction),
		})
	}
	for _, failure := range result.Failures {
		resp.Failures = append(resp.Failures, CleanupFailureResponse{
			ArtifactIDs: failure.ArtifactIDs,
			Error:       failure.Error,
		})
	}

	api.Success(w, http.StatusOK, resp)
}
