package domain

// RoutingOutcome represents the terminal state of a routing decision
type RoutingOutcome string

const (
	RoutingOutcomePlaced            RoutingOutcome = "placed"
	RoutingOutcomeNeedsReview       RoutingOutcome = "needs_review"
	RoutingOutcomePooledUnsorted    RoutingOutcome = "pooled_unsorted"
	RoutingOutcomeRejectedDuplicate RoutingOutcome = "rejected_duplicate"
)

// CrossLink is a secondary folder placement for an artifact whose primary
// placement is elsewhere.
type CrossLink struct {
	FolderPath string
	Score      float64
}

// RoutingVerdict is the final placement decision for one artifact.
type RoutingVerdict struct {
	ArtifactID  string
	Outcome     RoutingOutcome
	FolderPath  string  // set when Outcome is placed
	Score       float64 // top candidate score, 0 when no candidates
	CrossLinks  []CrossLink
	DuplicateOf string // set when Outcome is rejected_duplicate
}

// isValidRoutingOutcome checks if a RoutingOutcome is valid
func isValidRoutingOutcome(o RoutingOutcome) bool {
	switch o {
	case RoutingOutcomePlaced, RoutingOutcomeNeedsReview,
		RoutingOutcomePooledUnsorted, RoutingOutcomeRejectedDuplicate:
		return true
	}
	return false
}

// ValidateRoutingVerdict validates a RoutingVerdict instance
func ValidateRoutingVerdict(v *RoutingVerdict) error {
	if v == nil {
		return NewDomainError(ErrCodeValidation, "routing verdict cannot be nil")
	}

	if v.ArtifactID == "" {
		return NewDomainError(ErrCodeValidation, "routing verdict ArtifactID is required")
	}

	if !isValidRoutingOutcome(v.Outcome) {
		return NewDomainError(ErrCodeValidation, "routing verdict Outcome is invalid")
	}

	if v.Outcome == RoutingOutcomePlaced && v.FolderPath == "" {
		return NewDomainError(ErrCodeValidation, "placed verdict requires a folder path")
	}

	if v.Outcome == RoutingOutcomeRejectedDuplicate && v.DuplicateOf == "" {
		return NewDomainError(ErrCodeValidation, "duplicate verdict requires the matched artifact id")
	}

	return nil
}
