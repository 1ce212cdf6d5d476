package config

import (
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// RoutingConfig holds the thresholds that drive routing verdicts.
type RoutingConfig struct {
	HighConfidenceThreshold float64 `envconfig:"ROUTING_HIGH_CONFIDENCE_THRESHOLD" default:"0.82"`
	LowConfidenceThreshold  float64 `envconfig:"ROUTING_LOW_CONFIDENCE_THRESHOLD" default:"0.65"`
	NewTopicThreshold       float64 `envconfig:"ROUTING_NEW_TOPIC_THRESHOLD" default:"0.5"`
	CrossLinkDelta          float64 `envconfig:"ROUTING_CROSS_LINK_DELTA" default:"0.03"`
	CrossLinkMinScore       float64 `envconfig:"ROUTING_CROSS_LINK_MIN_SCORE" default:"0.79"`
	MaxCrossLinks           int     `envconfig:"ROUTING_MAX_CROSS_LINKS" default:"3"`
	MaxFolderDepth          int     `envconfig:"ROUTING_MAX_FOLDER_DEPTH" default:"4"`
}

// VectorConfig holds embedding dimensionality and duplicate-search bounds.
type VectorConfig struct {
	Dimensions                 int     `envconfig:"VECTOR_DIMENSIONS" default:"1536"`
	DuplicateSearchLimit       int     `envconfig:"VECTOR_DUPLICATE_SEARCH_LIMIT" default:"50"`
	DuplicateSearchFloor       float64 `envconfig:"VECTOR_DUPLICATE_SEARCH_FLOOR" default:"0.85"`
	SemanticDuplicateThreshold float64 `envconfig:"VECTOR_SEMANTIC_DUPLICATE_THRESHOLD" default:"0.95"`
}

// FolderScoringConfig holds the weights of the folder placement score.
// These are policy, not constants: the balance between average and max
// exemplar similarity is domain-tunable.
type FolderScoringConfig struct {
	AvgWeight      float64 `envconfig:"SCORING_AVG_WEIGHT" default:"0.7"`
	MaxWeight      float64 `envconfig:"SCORING_MAX_WEIGHT" default:"0.3"`
	CountBonusRate float64 `envconfig:"SCORING_COUNT_BONUS_RATE" default:"0.005"`
	CountBonusCap  float64 `envconfig:"SCORING_COUNT_BONUS_CAP" default:"0.05"`
	ExemplarCap    int     `envconfig:"SCORING_EXEMPLAR_CAP" default:"10"`
}

// ClusteringConfig holds the parameters of the unsorted-pool clustering pass.
type ClusteringConfig struct {
	SimilarityThreshold float64 `envconfig:"CLUSTERING_SIMILARITY_THRESHOLD" default:"0.75"`
	MinClusterSize      int     `envconfig:"CLUSTERING_MIN_CLUSTER_SIZE" default:"5"`
	CoherenceFloor      float64 `envconfig:"CLUSTERING_COHERENCE_FLOOR" default:"0.1"`
	MaxPoolSize         int     `envconfig:"CLUSTERING_MAX_POOL_SIZE" default:"500"`
}

// BatchConfig holds the parameters of the folder cleanup (layer 2) pass
// and the maintenance worker.
type BatchConfig struct {
	MergeThreshold     float64       `envconfig:"BATCH_MERGE_THRESHOLD" default:"0.90"`
	MergeVarianceLimit float64       `envconfig:"BATCH_MERGE_VARIANCE_LIMIT" default:"0.0025"`
	CleanupTriggerSize int           `envconfig:"BATCH_CLEANUP_TRIGGER_SIZE" default:"25"`
	WorkerPollInterval time.Duration `envconfig:"BATCH_WORKER_POLL_INTERVAL" default:"60s"`
}

// CacheConfig holds the folder snapshot cache bounds.
type CacheConfig struct {
	FolderCacheSize int           `envconfig:"CACHE_FOLDER_SIZE" default:"256"`
	FolderCacheTTL  time.Duration `envconfig:"CACHE_FOLDER_TTL" default:"5m"`
}

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// APIKey authenticates clients of the HTTP API. Empty disables auth
	// (local development only).
	APIKey string `envconfig:"API_KEY"`

	Routing       RoutingConfig
	Vector        VectorConfig
	FolderScoring FolderScoringConfig
	Clustering    ClusteringConfig
	Batch         BatchConfig
	Cache         CacheConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CURIO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// Validate checks cross-field invariants. Violations are fatal at startup,
// never discovered mid-run.
func (c *Config) Validate() error {
	r := c.Routing
	if !(r.NewTopicThreshold < r.LowConfidenceThreshold && r.LowConfidenceThreshold <= r.HighConfidenceThreshold) {
		return domain.ErrThresholdOrder
	}
	if r.CrossLinkDelta < 0 {
		return domain.NewDomainError(domain.ErrCodeConfig, "cross-link delta cannot be negative")
	}
	if r.MaxCrossLinks < 0 {
		return domain.NewDomainError(domain.ErrCodeConfig, "max cross-links cannot be negative")
	}
	if r.MaxFolderDepth < 1 {
		return domain.NewDomainError(domain.ErrCodeConfig, "max folder depth must be at least 1")
	}

	v := c.Vector
	if v.Dimensions < 1 {
		return domain.NewDomainError(domain.ErrCodeConfig, "vector dimensions must be positive")
	}
	if v.DuplicateSearchLimit < 1 {
		return domain.NewDomainError(domain.ErrCodeConfig, "duplicate search limit must be positive")
	}
	if v.SemanticDuplicateThreshold < v.DuplicateSearchFloor {
		return domain.NewDomainError(domain.ErrCodeConfig, "semantic duplicate threshold cannot be below the search floor")
	}

	s := c.FolderScoring
	if s.AvgWeight < 0 || s.MaxWeight < 0 || s.CountBonusRate < 0 || s.CountBonusCap < 0 {
		return domain.NewDomainError(domain.ErrCodeConfig, "folder scoring weights cannot be negative")
	}
	if s.ExemplarCap < 1 {
		return domain.NewDomainError(domain.ErrCodeConfig, "exemplar cap must be at least 1")
	}

	cl := c.Clustering
	if cl.MinClusterSize < 2 {
		return domain.NewDomainError(domain.ErrCodeConfig, "minimum cluster size must be at least 2")
	}
	if cl.MaxPoolSize < 1 {
		return domain.NewDomainError(domain.ErrCodeConfig, "max pool size must be positive")
	}

	b := c.Batch
	if b.MergeThreshold <= 0 || b.MergeThreshold > 1 {
		return domain.NewDomainError(domain.ErrCodeConfig, "merge threshold must be in (0, 1]")
	}
	if b.CleanupTriggerSize < 2 {
		return domain.NewDomainError(domain.ErrCodeConfig, "cleanup trigger size must be at least 2")
	}

	ch := c.Cache
	if ch.FolderCacheSize < 1 {
		return domain.NewDomainError(domain.ErrCodeConfig, "folder cache size must be positive")
	}

	return nil
}
