//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/curioai/internal/api/handlers"
	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/repository"
	"github.com/cloo-solutions/curioai/internal/server"
	"github.com/cloo-solutions/curioai/internal/service"
	"github.com/cloo-solutions/curioai/internal/testutil"
)

const testAPIKey = "e2e-test-key"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and a running server. Embeddings are supplied by the tests themselves, so
// no external provider is needed.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Reset truncates all tables for test isolation
func (e *E2ETestEnv) Reset() {
	if err := testutil.TruncateAll(e.Ctx, e.Pool); err != nil {
		e.T.Fatalf("failed to truncate tables: %v", err)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs an authenticated GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, int, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs an authenticated POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, int, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, int, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if resp.StatusCode >= 400 {
		return &apiResp, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, resp.StatusCode, nil
}

// testConfig returns the service configuration used by the E2E server.
// Embedding dimensions match the vector(1536) columns in the migrations.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Vector = config.VectorConfig{
		Dimensions:                 1536,
		DuplicateSearchLimit:       50,
		DuplicateSearchFloor:       0.85,
		SemanticDuplicateThreshold: 0.95,
	}
	cfg.Routing = config.RoutingConfig{
		HighConfidenceThreshold: 0.82,
		LowConfidenceThreshold:  0.65,
		NewTopicThreshold:       0.5,
		CrossLinkDelta:          0.03,
		CrossLinkMinScore:       0.79,
		MaxCrossLinks:           3,
		MaxFolderDepth:          4,
	}
	cfg.FolderScoring = config.FolderScoringConfig{
		AvgWeight:      0.7,
		MaxWeight:      0.3,
		CountBonusRate: 0.005,
		CountBonusCap:  0.05,
		ExemplarCap:    10,
	}
	cfg.Clustering = config.ClusteringConfig{
		SimilarityThreshold: 0.75,
		MinClusterSize:      3,
		CoherenceFloor:      0.1,
		MaxPoolSize:         500,
	}
	cfg.Batch = config.BatchConfig{
		MergeThreshold:     0.90,
		MergeVarianceLimit: 0.0025,
		CleanupTriggerSize: 25,
		WorkerPollInterval: time.Minute,
	}
	cfg.Cache = config.CacheConfig{
		FolderCacheSize: 64,
		FolderCacheTTL:  time.Minute,
	}
	return cfg
}

// startServer starts the HTTP server with the full service graph
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func()) {
	cfg := testConfig()

	artifactRepo := repository.NewArtifactRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	cache := service.NewFolderCache(folderRepo, cfg.Cache)

	distiller, err := service.NewDistiller(service.DistillProviderStatic, nil)
	if err != nil {
		t.Fatalf("failed to create distiller: %v", err)
	}

	detector := service.NewDuplicateDetector(artifactRepo, cfg.Vector)
	scorer := service.NewFolderScorer(cfg.FolderScoring)
	locks := service.NewFolderLocks()
	routing := service.NewRoutingService(detector, scorer, cache, txRunner, locks, cfg.Routing, cfg.FolderScoring)
	ingest := service.NewIngestService(distiller, &failEmbedder{}, detector, routing, cfg.Vector.Dimensions)
	query := service.NewQueryService(artifactRepo, folderRepo)
	clustering := service.NewClusteringService(artifactRepo, txRunner, cache, locks, cfg.Clustering, cfg.FolderScoring)
	cleanup := service.NewCleanupService(artifactRepo, folderRepo, distiller, txRunner, cache, locks, cfg.Batch, cfg.FolderScoring)

	routerCfg := server.RouterConfig{
		APIKey:         testAPIKey,
		ConceptHandler: handlers.NewConceptHandler(ingest, query),
		FolderHandler:  handlers.NewFolderHandler(query, cleanup),
		ClusterHandler: handlers.NewClusterHandler(clustering),
	}

	router := server.NewRouter(routerCfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// failEmbedder forces tests to supply embeddings explicitly, keeping the
// suite hermetic.
type failEmbedder struct{}

func (e *failEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("e2e tests must supply embeddings")
}

// unitEmbedding builds a 1536-dim unit vector whose cosine similarity to
// unitEmbedding(axis, 1.0) is cos for any other vector built on the same
// axis pair.
func unitEmbedding(axis int, cos float64) []float32 {
	v := make([]float32, 1536)
	v[axis] = float32(cos)
	v[axis+1] = float32(math.Sqrt(1 - cos*cos))
	return v
}
