package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/curioai/internal/api"
	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/service"
)

type FolderReader interface {
	ListFolders(ctx context.Context) ([]*domain.Folder, error)
}

type FolderCleaner interface {
	CleanupFolder(ctx context.Context, folderPath string) (*service.CleanupResult, error)
}

type FolderHandler struct {
	reader  FolderReader
	cleaner FolderCleaner
}

func NewFolderHandler(reader FolderReader, cleaner FolderCleaner) *FolderHandler {
	return &FolderHandler{reader: reader, cleaner: cleaner}
}

type FolderResponse struct {
	Path        string `json:"path"`
	MemberCount int    `json:"member_count"`
	Provisional bool   `json:"provisional"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func folderToResponse(f *domain.Folder) *FolderResponse {
	return &FolderResponse{
		Path:        f.Path,
		MemberCount: f.MemberCount,
		Provisional: f.Provisional,
		CreatedAt:   f.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   f.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	folders, err := h.reader.ListFolders(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*FolderResponse, len(folders))
	for i, f := range folders {
		responses[i] = folderToResponse(f)
	}

	api.Success(w, http.StatusOK, responses)
}

type CleanupFolderRequest struct {
	FolderPath string `json:"folder_path"`
}

type MergeRecordResponse struct {
	SurvivorID  string   `json:"survivor_id"`
	AbsorbedIDs []string `json:"absorbed_ids"`
	Title       string   `json:"title"`
}

type CleanupFailureResponse struct {
	ArtifactIDs []string `json:"artifact_ids"`
	Error       string   `json:"error"`
}

type CleanupResultResponse struct {
	FolderPath string                   `json:"folder_path"`
	GroupCount int                      `json:"group_count"`
	Merges     []MergeRecordResponse    `json:"merges"`
	Failures   []CleanupFailureResponse `json:"failures,omitempty"`
}

func (h *FolderHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FolderPath == "" {
		api.Error(w, http.StatusBadRequest, "folder_path is required")
		return
	}

	result, err := h.cleaner.CleanupFolder(r.Context(), req.FolderPath)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := CleanupResultResponse{
		FolderPath: result.FolderPath,
		GroupCount: len(result.Groups),
		Merges:     make([]MergeRecordResponse, 0, len(result.Merges)),
	}
	for _, merge := range result.Merges {
		resp.Merges = append(resp.Merges, MergeRecordResponse{
			SurvivorID:  merge.SurvivorID,
			AbsorbedIDs: merge.AbsorbedIDs,
			Title:       merge.Title,
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
