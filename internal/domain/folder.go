package domain

import (
	"fmt"
	"strings"
	"time"
)

// Folder represents a node in the taxonomy. A folder owns its member list
// and the centroid/exemplars derived from it; membership mutations go
// through routing (adds) or cleanup (removes), never through callers.
type Folder struct {
	Path        string
	MemberCount int
	Centroid    []float32
	Exemplars   [][]float32
	Provisional bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewFolder creates a new Folder instance
func NewFolder(path string, provisional bool, createdAt time.Time) *Folder {
	return &Folder{
		Path:        path,
		MemberCount: 0,
		Centroid:    nil,
		Exemplars:   nil,
		Provisional: provisional,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// Depth returns the folder's depth within the taxonomy (root children = 1).
func (f *Folder) Depth() int {
	return FolderDepth(f.Path)
}

// FolderDepth returns the number of path segments in a normalized folder path.
func FolderDepth(path string) int {
	path = strings.Trim(path, "/")
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// NormalizeFolderPath trims surrounding slashes and whitespace and collapses
// empty segments. Returns ErrInvalidFolderPath for paths with no segments.
func NormalizeFolderPath(path string) (string, error) {
	segments := strings.Split(strings.Trim(strings.TrimSpace(path), "/"), "/")
	cleaned := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		cleaned = append(cleaned, seg)
	}
	if len(cleaned) == 0 {
		return "", ErrInvalidFolderPath
	}
	return strings.Join(cleaned, "/"), nil
}

// ValidateFolder validates a Folder instance against the depth bound.
func ValidateFolder(f *Folder, maxDepth int) error {
	if f == nil {
		return fmt.Errorf("folder cannot be nil")
	}

	if f.Path == "" {
		return ErrInvalidFolderPath
	}

	if maxDepth > 0 && f.Depth() > maxDepth {
		return ErrFolderTooDeep
	}

	if f.MemberCount < 0 {
		return fmt.Errorf("folder MemberCount cannot be negative")
	}

	return nil
}
