package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/curioai/internal/config"
)

// ScanCmd returns the scan command: one clustering pass over the unsorted
// pool, run directly against the database. Folder mutation is serialized
// through an in-process lock arena, so this must not run while the daemon
// is serving; use POST /clusters/scan against a live daemon instead.
func ScanCmd() *cobra.Command {
	var promote bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a clustering pass over the unsorted pool",
		Long: "Cluster the unsorted pool and optionally promote cohesive clusters into provisional folders.\n" +
			"Runs directly against the database; stop the daemon first, or use POST /clusters/scan instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runScan(promote, outputFormat)
		},
	}

	cmd.Flags().BoolVar(&promote, "promote", false, "Promote cohesive clusters into provisional folders")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runScan(promote bool, outputFormat string) error {
	ctx := context.Background()

	pool, cfg, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, err := buildServices(pool, cfg)
	if err != nil {
		return err
	}

	result, err := deps.clustering.ScanAndPromote(ctx, promote)
	if err != nil {
		return fmt.Errorf("cluster scan failed: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(map[string]interface{}{
			"clusters": result.Clusters,
			"promoted": result.Promoted,
			"failures": result.Failures,
		}, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(result.Clusters) == 0 {
		fmt.Println("No clusters found")
		return nil
	}
	for i, cluster := range result.Clusters {
		fmt.Printf("%d. %d concepts, coherence %.3f, action: %s\n",
			i+1, len(cluster.ArtifactIDs), cluster.Coherence, cluster.SuggestedAction)
	}
	for _, path := range result.Promoted {
		fmt.Printf("Promoted: %s\n", path)
	}
	for _, failure := range result.Failures {
		fmt.Printf("Failed cluster %v: %s\n", failure.ArtifactIDs, failure.Error)
	}

	return nil
}

// CleanupCmd returns the cleanup command: the batch duplicate pass over one
// folder, run directly against the database. Same caveat as ScanCmd: not
// safe against a live daemon; use POST /folders/cleanup instead.
func CleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup <folder_path>",
		Short: "Run the duplicate cleanup pass over one folder",
		Long: "Merge near-identical members of a folder into single surviving concepts.\n" +
			"Runs directly against the database; stop the daemon first, or use POST /folders/cleanup instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runCleanup(args[0], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runCleanup(folderPath, outputFormat string) error {
	ctx := context.Background()

	pool, cfg, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, err := buildServices(pool, cfg)
	if err != nil {
		return err
	}

	result, err := deps.cleanup.CleanupFolder(ctx, folderPath)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(map[string]interface{}{
			"folder_path": result.FolderPath,
			"groups":      result.Groups,
			"merges":      result.Merges,
			"failures":    result.Failures,
		}, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(result.Merges) == 0 && len(result.Failures) == 0 {
		fmt.Printf("No duplicate groups found in %s\n", result.FolderPath)
		return nil
	}
	for _, merge := range result.Merges {
		fmt.Printf("Merged %d concepts into %s (%q)\n", len(merge.AbsorbedIDs)+1, merge.SurvivorID, merge.Title)
	}
	for _, failure := range result.Failures {
		fmt.Printf("Failed group %v: %s\n", failure.ArtifactIDs, failure.Error)
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, cfg, nil
}
