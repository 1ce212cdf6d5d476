package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/curioai/internal/api/handlers"
	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/jobs"
	"github.com/cloo-solutions/curioai/internal/openai"
	"github.com/cloo-solutions/curioai/internal/repository"
	"github.com/cloo-solutions/curioai/internal/server"
	"github.com/cloo-solutions/curioai/internal/service"
	"github.com/cloo-solutions/curioai/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the curio API server and the background maintenance worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Skip the background maintenance worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	deps, err := buildServices(pool, cfg)
	if err != nil {
		return err
	}

	var worker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		maintenance := jobs.NewMaintenanceWorker(
			deps.clustering, deps.cleanup, deps.folderRepo, cfg.Batch.CleanupTriggerSize)
		worker = jobs.NewWorker(maintenance, cfg.Batch.WorkerPollInterval)
		go worker.Start(ctx)
		log.Println("maintenance worker started")
	}

	routerCfg := server.RouterConfig{
		APIKey:         cfg.APIKey,
		ConceptHandler: handlers.NewConceptHandler(deps.ingest, deps.query),
		FolderHandler:  handlers.NewFolderHandler(deps.query, deps.cleanup),
		ClusterHandler: handlers.NewClusterHandler(deps.clustering),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// services bundles the wired service graph for the daemon and the admin
// maintenance commands.
type services struct {
	ingest     *service.IngestService
	query      *service.QueryService
	routing    *service.RoutingService
	clustering *service.ClusteringService
	cleanup    *service.CleanupService
	folderRepo *repository.FolderRepository
}

func buildServices(pool *pgxpool.Pool, cfg *config.Config) (*services, error) {
	artifactRepo := repository.NewArtifactRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	cache := service.NewFolderCache(folderRepo, cfg.Cache)

	var embedder service.EmbeddingClient
	provider := service.DistillProviderStatic
	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.Vector.Dimensions,
		})
		embedder = client
		provider = service.DistillProviderOpenAI
		distiller, err := service.NewDistiller(provider, client)
		if err != nil {
			return nil, fmt.Errorf("failed to create distiller: %w", err)
		}
		return assemble(artifactRepo, folderRepo, txRunner, cache, distiller, embedder, cfg), nil
	}

	log.Println("no OpenAI key configured: using static distillation, embeddings must be supplied by callers")
	distiller, err := service.NewDistiller(provider, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create distiller: %w", err)
	}
	return assemble(artifactRepo, folderRepo, txRunner, cache, distiller, &noEmbedder{}, cfg), nil
}

func assemble(
	artifactRepo *repository.ArtifactRepository,
	folderRepo *repository.FolderRepository,
	txRunner *repository.TxRunner,
	cache *service.FolderCache,
	distiller service.Distiller,
	embedder service.EmbeddingClient,
	cfg *config.Config,
) *services {
	detector := service.NewDuplicateDetector(artifactRepo, cfg.Vector)
	scorer := service.NewFolderScorer(cfg.FolderScoring)
	// One lock arena; routing, clustering and cleanup serialize membership
	// mutation per folder path through it.
	locks := service.NewFolderLocks()
	routing := service.NewRoutingService(detector, scorer, cache, txRunner, locks, cfg.Routing, cfg.FolderScoring)
	ingest := service.NewIngestService(distiller, embedder, detector, routing, cfg.Vector.Dimensions)
	query := service.NewQueryService(artifactRepo, folderRepo)
	clustering := service.NewClusteringService(artifactRepo, txRunner, cache, locks, cfg.Clustering, cfg.FolderScoring)
	cleanup := service.NewCleanupService(artifactRepo, folderRepo, distiller, txRunner, cache, locks, cfg.Batch, cfg.FolderScoring)

	return &services{
		ingest:     ingest,
		query:      query,
		routing:    routing,
		clustering: clustering,
		cleanup:    cleanup,
		folderRepo: folderRepo,
	}
}

// noEmbedder rejects embedding requests when no provider is configured.
// Ingest still works for callers that supply a precomputed embedding.
type noEmbedder struct{}

func (e *noEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
