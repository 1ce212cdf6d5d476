package service

import (
	"math"
	"sort"

	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/similarity"
)

// FolderScore is one candidate placement for an artifact.
type FolderScore struct {
	Path  string
	Depth int
	Score float64
}

// FolderScorer ranks candidate folders for an artifact using weighted
// similarity signals against each folder's exemplar set.
type FolderScorer struct {
	cfg config.FolderScoringConfig
}

// NewFolderScorer creates a new FolderScorer instance
func NewFolderScorer(cfg config.FolderScoringConfig) *FolderScorer {
	return &FolderScorer{cfg: cfg}
}

// Score computes the placement score of an artifact embedding against one
// folder. Average exemplar similarity rewards topical cohesion, max
// similarity rewards closeness to a single member, and a capped member
// count bonus mildly favors established folders. The result is not
// strictly bounded to [0, 1] since the bonus is additive.
func (s *FolderScorer) Score(embedding []float32, folder *domain.Folder) float64 {
	exemplars := folder.Exemplars
	if len(exemplars) == 0 && len(folder.Centroid) > 0 {
		exemplars = [][]float32{folder.Centroid}
	}
	if len(exemplars) == 0 {
		return 0
	}

	var sum float64
	best := math.Inf(-1)
	counted := 0
	for _, exemplar := range exemplars {
		sim, ok := similarity.Cosine(embedding, exemplar)
		if !ok {
			continue
		}
		sum += sim
		if sim > best {
			best = sim
		}
		counted++
	}
	if counted == 0 {
		return 0
	}

	avg := sum / float64(counted)
	bonus := math.Min(s.cfg.CountBonusCap, float64(folder.MemberCount)*s.cfg.CountBonusRate)

	return s.cfg.AvgWeight*avg + s.cfg.MaxWeight*best + bonus
}

// Rank scores the eligible candidate folders and returns them best first.
// Folders deeper than maxDepth are excluded. Ties are broken by shallower
// depth (prefer broader placement), then lexical path order, so the
// ranking is deterministic.
func (s *FolderScorer) Rank(embedding []float32, folders []*domain.Folder, maxDepth int) []FolderScore {
	scores := make([]FolderScore, 0, len(folders))
	for _, folder := range folders {
		depth := folder.Depth()
		if maxDepth > 0 && depth > maxDepth {
			continue
		}
		scores = append(scores, FolderScore{
			Path:  folder.Path,
			Depth: depth,
			Score: s.Score(embedding, folder),
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if scores[i].Depth != scores[j].Depth {
			return scores[i].Depth < scores[j].Depth
		}
		return scores[i].Path < scores[j].Path
	})

	return scores
}
