package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/service"
)

// ClusterScanner runs a clustering pass over the unsorted pool.
type ClusterScanner interface {
	ScanAndPromote(ctx context.Context, promote bool) (*service.ClusterScanResult, error)
}

// FolderCleaner runs the duplicate cleanup pass over one folder.
type FolderCleaner interface {
	CleanupFolder(ctx context.Context, folderPath string) (*service.CleanupResult, error)
}

// FolderLister lists folders eligible for cleanup.
type FolderLister interface {
	ListBySize(ctx context.Context, minMembers int) ([]*domain.Folder, error)
}

// MaintenanceWorker runs the periodic background passes: clustering of the
// unsorted pool and duplicate cleanup of folders that have grown past the
// trigger size. Both passes are chunked into independently committed units,
// so a mid-batch cancellation never leaves partial state.
type MaintenanceWorker struct {
	scanner     ClusterScanner
	cleaner     FolderCleaner
	folders     FolderLister
	triggerSize int
}

// NewMaintenanceWorker creates a new MaintenanceWorker instance
func NewMaintenanceWorker(scanner ClusterScanner, cleaner FolderCleaner, folders FolderLister, triggerSize int) *MaintenanceWorker {
	return &MaintenanceWorker{
		scanner:     scanner,
		cleaner:     cleaner,
		folders:     folders,
		triggerSize: triggerSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *MaintenanceWorker) ProcessJobs(ctx context.Context) error {
	if err := w.runClusterScan(ctx); err != nil {
		return err
	}
	return w.runCleanup(ctx)
}

func (w *MaintenanceWorker) runClusterScan(ctx context.Context) error {
	result, err := w.scanner.ScanAndPromote(ctx, true)
	if err != nil {
		return fmt.Errorf("cluster scan failed: %w", err)
	}

	if len(result.Promoted) > 0 {
		log.Printf("Cluster scan promoted %d folders: %v", len(result.Promoted), result.Promoted)
	}
	for _, failure := range result.Failures {
		log.Printf("Cluster promotion failed for %v: %s", failure.ArtifactIDs, failure.Error)
	}
	return nil
}

func (w *MaintenanceWorker) runCleanup(ctx context.Context) error {
	candidates, err := w.folders.ListBySize(ctx, w.triggerSize)
	if err != nil {
		return fmt.Errorf("failed to list cleanup candidates: %w", err)
	}

	for _, folder := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := w.cleaner.CleanupFolder(ctx, folder.Path)
		if err != nil {
			// One folder failing must not starve the rest of the batch.
			log.Printf("Cleanup of folder %s failed: %v", folder.Path, err)
			continue
		}
		if len(result.Merges) > 0 {
			log.Printf("Cleanup of folder %s merged %d groups", folder.Path, len(result.Merges))
		}
		for _, failure := range result.Failures {
			log.Printf("Cleanup merge failed in folder %s for %v: %s", folder.Path, failure.ArtifactIDs, failure.Error)
		}
	}

	return nil
}
