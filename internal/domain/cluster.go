package domain

// SuggestedAction represents what a clustering pass recommends for a cluster
type SuggestedAction string

const (
	SuggestedActionCreateFolder  SuggestedAction = "create_folder"
	SuggestedActionRouteTogether SuggestedAction = "route_together"
)

// ConceptCluster is an ephemeral grouping of unsorted artifacts produced by
// a clustering pass. It is never persisted and is recomputed on every pass.
type ConceptCluster struct {
	ArtifactIDs     []string
	Centroid        []float32
	Coherence       float64
	SuggestedAction SuggestedAction
}

// Size returns the number of artifacts in the cluster.
func (c *ConceptCluster) Size() int {
	return len(c.ArtifactIDs)
}

// isValidSuggestedAction checks if a SuggestedAction is valid
func isValidSuggestedAction(a SuggestedAction) bool {
	switch a {
	case SuggestedActionCreateFolder, SuggestedActionRouteTogether:
		return true
	}
	return false
}

// ValidateConceptCluster validates a ConceptCluster instance
func ValidateConceptCluster(c *ConceptCluster) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "cluster cannot be nil")
	}

	if len(c.ArtifactIDs) < 2 {
		return NewDomainError(ErrCodeValidation, "cluster must contain at least two artifacts")
	}

	if !isValidSuggestedAction(c.SuggestedAction) {
		return NewDomainError(ErrCodeValidation, "cluster SuggestedAction is invalid")
	}

	return nil
}
