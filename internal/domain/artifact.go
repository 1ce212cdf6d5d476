package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Artifact represents a distilled, embedded unit of content eligible for filing.
// Content is immutable after creation; only placement and re-embedding mutate it.
type Artifact struct {
	ID          string
	Title       string
	Summary     string
	SourceText  string
	Fingerprint string
	Embedding   []float32
	FolderPath  string // empty = unsorted pool
	CrossLinks  []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewArtifact creates a new Artifact instance with a fingerprint derived
// from the normalized source text.
func NewArtifact(id, title, summary, sourceText string, embedding []float32, createdAt time.Time) *Artifact {
	return &Artifact{
		ID:          id,
		Title:       title,
		Summary:     summary,
		SourceText:  sourceText,
		Fingerprint: Fingerprint(sourceText),
		Embedding:   embedding,
		FolderPath:  "",
		CrossLinks:  nil,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// Fingerprint computes a stable hash of the normalized source text.
// Normalization lowercases and collapses all whitespace runs so that
// formatting-only differences do not defeat exact duplicate detection.
func Fingerprint(sourceText string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(sourceText), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// IsUnsorted reports whether the artifact sits in the unsorted pool.
func (a *Artifact) IsUnsorted() bool {
	return a.FolderPath == ""
}

// ValidateArtifact validates an Artifact instance
func ValidateArtifact(a *Artifact) error {
	if a == nil {
		return fmt.Errorf("artifact cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("artifact ID is required")
	}

	if a.Title == "" {
		return fmt.Errorf("artifact Title is required")
	}

	if strings.TrimSpace(a.SourceText) == "" {
		return ErrEmptySourceText
	}

	if a.Fingerprint == "" {
		return fmt.Errorf("artifact Fingerprint is required")
	}

	if len(a.Embedding) == 0 {
		return ErrEmptyEmbedding
	}

	return nil
}
