package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/curioai/internal/api"
	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/service"
)

type ConceptIngestor interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
	Check(ctx context.Context, input service.IngestInput) (*domain.DuplicateCheckResult, error)
}

type ConceptReader interface {
	GetArtifact(ctx context.Context, id string) (*domain.Artifact, error)
	ListArtifacts(ctx context.Context, input service.ListArtifactsInput) (*service.ListArtifactsOutput, error)
}

type ConceptHandler struct {
	ingestor ConceptIngestor
	reader   ConceptReader
}

func NewConceptHandler(ingestor ConceptIngestor, reader ConceptReader) *ConceptHandler {
	return &ConceptHandler{ingestor: ingestor, reader: reader}
}

type IngestConceptRequest struct {
	SourceText string    `json:"source_text"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

type CrossLinkResponse struct {
	FolderPath string  `json:"folder_path"`
	Score      float64 `json:"score"`
}

type RoutingVerdictResponse struct {
	Outcome     string              `json:"outcome"`
	FolderPath  string              `json:"folder_path,omitempty"`
	Score       float64             `json:"score"`
	CrossLinks  []CrossLinkResponse `json:"cross_links,omitempty"`
	DuplicateOf string              `json:"duplicate_of,omitempty"`
}

type ConceptResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	SourceText string   `json:"source_text"`
	FolderPath string   `json:"folder_path,omitempty"`
	CrossLinks []string `json:"cross_links,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

type IngestConceptResponse struct {
	Concept *ConceptResponse        `json:"concept,omitempty"`
	Verdict *RoutingVerdictResponse `json:"verdict"`
}

func conceptToResponse(a *domain.Artifact) *ConceptResponse {
	return &ConceptResponse{
		ID:         a.ID,
		Title:      a.Title,
		Summary:    a.Summary,
		SourceText: a.SourceText,
		FolderPath: a.FolderPath,
		CrossLinks: a.CrossLinks,
		CreatedAt:  a.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  a.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func verdictToResponse(v *domain.RoutingVerdict) *RoutingVerdictResponse {
	resp := &RoutingVerdictResponse{
		Outcome:     string(v.Outcome),
		FolderPath:  v.FolderPath,
		Score:       v.Score,
		DuplicateOf: v.DuplicateOf,
	}
	for _, link := range v.CrossLinks {
		resp.CrossLinks = append(resp.CrossLinks, CrossLinkResponse{
			FolderPath: link.FolderPath,
			Score:      link.Score,
		})
	}
	return resp
}

func (h *ConceptHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestConceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceText == "" {
		api.Error(w, http.StatusBadRequest, "source_text is required")
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), service.IngestInput{
		SourceText: req.SourceText,
		Embedding:  req.Embedding,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := IngestConceptResponse{Verdict: verdictToResponse(result.Verdict)}
	status := http.StatusCreated
	if result.Verdict.Outcome == domain.RoutingOutcomeRejectedDuplicate {
		// Nothing was stored; the verdict points at the surviving artifact.
		status = http.StatusOK
	} else {
		resp.Concept = conceptToResponse(result.Artifact)
	}

	api.Success(w, status, resp)
}

type DuplicateCheckResponse struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Type        string  `json:"type,omitempty"`
	MatchedID   string  `json:"matched_id,omitempty"`
	Confidence  float64 `json:"confidence"`
}

func (h *ConceptHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req IngestConceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceText == "" {
		api.Error(w, http.StatusBadRequest, "source_text is required")
		return
	}

	result, err := h.ingestor.Check(r.Context(), service.IngestInput{
		SourceText: req.SourceText,
		Embedding:  req.Embedding,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DuplicateCheckResponse{
		IsDuplicate: result.IsDuplicate,
		Type:        string(result.Type),
		MatchedID:   result.MatchedID,
		Confidence:  result.Confidence,
	})
}

func (h *ConceptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	artifact, err := h.reader.GetArtifact(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, conceptToResponse(artifact))
}

type ConceptListResponse struct {
	Items   []*ConceptResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func (h *ConceptHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	unsortedOnly := r.URL.Query().Get("unsorted") == "true"
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.reader.ListArtifacts(r.Context(), service.ListArtifactsInput{
		Cursor:       cursor,
		Limit:        limit,
		UnsortedOnly: unsortedOnly,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ConceptResponse, len(output.Items))
	for i, a := range output.Items {
		responses[i] = conceptToResponse(a)
	}

	api.Success(w, http.StatusOK, ConceptListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}
