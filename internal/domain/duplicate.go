package domain

import "time"

// DuplicateType distinguishes how a duplicate was detected
type DuplicateType string

const (
	DuplicateTypeExact    DuplicateType = "exact"
	DuplicateTypeSemantic DuplicateType = "semantic"
)

// DuplicateCheckResult is the per-artifact verdict of the ingestion-time
// duplicate check. A duplicate verdict is a successful result, not an error.
type DuplicateCheckResult struct {
	IsDuplicate bool
	Type        DuplicateType
	MatchedID   string
	Confidence  float64
}

// NotDuplicate returns the verdict for an artifact with no match.
func NotDuplicate() *DuplicateCheckResult {
	return &DuplicateCheckResult{}
}

// ExactDuplicate returns an exact-match verdict with confidence 1.0.
func ExactDuplicate(matchedID string) *DuplicateCheckResult {
	return &DuplicateCheckResult{
		IsDuplicate: true,
		Type:        DuplicateTypeExact,
		MatchedID:   matchedID,
		Confidence:  1.0,
	}
}

// SemanticDuplicate returns a semantic-match verdict carrying the
// similarity to the matched artifact as confidence.
func SemanticDuplicate(matchedID string, similarity float64) *DuplicateCheckResult {
	return &DuplicateCheckResult{
		IsDuplicate: true,
		Type:        DuplicateTypeSemantic,
		MatchedID:   matchedID,
		Confidence:  similarity,
	}
}

// Neighbor is a nearest-neighbor hit from the vector index.
type Neighbor struct {
	ArtifactID string
	Similarity float64
}

// MergeAction classifies what cleanup recommends for a candidate-duplicate group
type MergeAction string

const (
	MergeActionMerge        MergeAction = "merge"
	MergeActionKeepSeparate MergeAction = "keep_separate"
	MergeActionManualReview MergeAction = "manual_review"
)

// MergeGroup is a connected component of near-duplicate folder members.
type MergeGroup struct {
	ArtifactIDs       []string
	MeanSimilarity    float64
	Variance          float64
	RecommendedAction MergeAction
}

// MergeRecord records the outcome of collapsing a merge group into one
// surviving artifact.
type MergeRecord struct {
	SurvivorID  string
	AbsorbedIDs []string
	Title       string
	Summary     string
	MergedAt    time.Time
}
