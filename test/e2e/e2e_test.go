//go:build e2e

package e2e

import (
	"encoding/json"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdictPayload struct {
	Outcome     string  `json:"outcome"`
	FolderPath  string  `json:"folder_path"`
	Score       float64 `json:"score"`
	DuplicateOf string  `json:"duplicate_of"`
}

type ingestPayload struct {
	Concept *struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		FolderPath string `json:"folder_path"`
	} `json:"concept"`
	Verdict verdictPayload `json:"verdict"`
}

type scanPayload struct {
	Clusters []struct {
		ArtifactIDs     []string `json:"artifact_ids"`
		Coherence       float64  `json:"coherence"`
		SuggestedAction string   `json:"suggested_action"`
	} `json:"clusters"`
	Promoted []string `json:"promoted"`
}

// angleEmbedding builds a unit vector at the given angle (degrees) in the
// plane of the first two dimensions. Cosine similarity between two such
// vectors is the cosine of the angle between them.
func angleEmbedding(deg float64) []float32 {
	rad := deg * math.Pi / 180
	v := make([]float32, 1536)
	v[0] = float32(math.Cos(rad))
	v[1] = float32(math.Sin(rad))
	return v
}

func ingest(t *testing.T, env *E2ETestEnv, text string, embedding []float32) (*ingestPayload, int) {
	t.Helper()
	resp, status, _ := env.Post("/concepts", map[string]interface{}{
		"source_text": text,
		"embedding":   embedding,
	})
	require.NotNil(t, resp)
	var payload ingestPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	return &payload, status
}

func TestE2E_ConceptLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	env := SetupE2EEnv(t)
	defer env.Cleanup()

	// Members of a future cluster: mutually similar but below the
	// semantic duplicate threshold.
	clusterTexts := []string{
		"Consensus protocols elect a leader. Raft uses randomized timeouts.",
		"Leader election is the heart of consensus. Terms fence stale leaders.",
		"Log replication follows the leader. Quorums make writes durable.",
	}
	clusterAngles := []float64{0, 28.36, -28.36}

	var clusterIDs []string
	for i, text := range clusterTexts {
		payload, status := ingest(t, env, text, angleEmbedding(clusterAngles[i]))
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "pooled_unsorted", payload.Verdict.Outcome)
		require.NotNil(t, payload.Concept)
		clusterIDs = append(clusterIDs, payload.Concept.ID)
	}

	// A stray fragment far from the cluster stays a singleton.
	strayEmbedding := make([]float32, 1536)
	strayEmbedding[100] = 1
	strayPayload, status := ingest(t, env, "Sourdough needs a mature starter. Hydration drives crumb structure.", strayEmbedding)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "pooled_unsorted", strayPayload.Verdict.Outcome)

	t.Run("exact duplicate is rejected without storing", func(t *testing.T) {
		payload, status := ingest(t, env, clusterTexts[0], angleEmbedding(0))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "rejected_duplicate", payload.Verdict.Outcome)
		assert.Equal(t, clusterIDs[0], payload.Verdict.DuplicateOf)
		assert.Nil(t, payload.Concept)
	})

	t.Run("check predicts the ingest decision", func(t *testing.T) {
		resp, status, err := env.Post("/concepts/check", map[string]interface{}{
			"source_text": clusterTexts[0],
			"embedding":   angleEmbedding(0),
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)

		var check struct {
			IsDuplicate bool   `json:"is_duplicate"`
			Type        string `json:"type"`
			MatchedID   string `json:"matched_id"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &check))
		assert.True(t, check.IsDuplicate)
		assert.Equal(t, "exact", check.Type)
		assert.Equal(t, clusterIDs[0], check.MatchedID)
	})

	var promotedPath string
	t.Run("cluster scan promotes the cohesive cluster", func(t *testing.T) {
		resp, status, err := env.Post("/clusters/scan", map[string]bool{"promote": true})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)

		var scan scanPayload
		require.NoError(t, json.Unmarshal(resp.Data, &scan))
		require.Len(t, scan.Promoted, 1)
		promotedPath = scan.Promoted[0]

		require.Len(t, scan.Clusters, 1)
		assert.Equal(t, "create_folder", scan.Clusters[0].SuggestedAction)
		assert.ElementsMatch(t, clusterIDs, scan.Clusters[0].ArtifactIDs)
	})

	t.Run("promoted folder appears provisional", func(t *testing.T) {
		resp, status, err := env.Get("/folders")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)

		var folders []struct {
			Path        string `json:"path"`
			MemberCount int    `json:"member_count"`
			Provisional bool   `json:"provisional"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &folders))
		require.Len(t, folders, 1)
		assert.Equal(t, promotedPath, folders[0].Path)
		assert.Equal(t, 3, folders[0].MemberCount)
		assert.True(t, folders[0].Provisional)
	})

	t.Run("stray concept stays in the unsorted pool", func(t *testing.T) {
		resp, status, err := env.Get("/concepts?unsorted=true")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)

		var list struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, strayPayload.Concept.ID, list.Items[0].ID)
	})

	t.Run("related fragment lands in the review band", func(t *testing.T) {
		payload, status := ingest(t, env,
			"Heartbeats suppress elections. Followers reset timers on contact.",
			angleEmbedding(48))
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "needs_review", payload.Verdict.Outcome)
		assert.Equal(t, promotedPath, payload.Verdict.FolderPath)
		require.NotNil(t, payload.Concept)
		assert.Empty(t, payload.Concept.FolderPath)
	})

	t.Run("cleanup finds no merge groups below the merge threshold", func(t *testing.T) {
		resp, status, err := env.Post("/folders/cleanup", map[string]string{"folder_path": promotedPath})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)

		var cleanup struct {
			GroupCount int `json:"group_count"`
			Merges     []struct {
				SurvivorID string `json:"survivor_id"`
			} `json:"merges"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &cleanup))
		assert.Zero(t, cleanup.GroupCount)
		assert.Empty(t, cleanup.Merges)
	})

	t.Run("unauthenticated requests are rejected", func(t *testing.T) {
		resp, err := http.Get(env.ServerURL + "/concepts")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestE2E_DimensionMismatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, status, err := env.Post("/concepts", map[string]interface{}{
		"source_text": "A fragment with a malformed embedding.",
		"embedding":   []float32{1, 0},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}
