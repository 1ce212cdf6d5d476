package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// FolderRepository persists taxonomy folders and their derived state
// (centroid, exemplar set, member count).
type FolderRepository struct {
	db dbtx
}

func NewFolderRepository(pool *pgxpool.Pool) *FolderRepository {
	return &FolderRepository{db: pool}
}

func NewFolderRepositoryWithTx(tx pgx.Tx) *FolderRepository {
	return &FolderRepository{db: tx}
}

func (r *FolderRepository) Create(ctx context.Context, f *domain.Folder) error {
	var centroid any
	if len(f.Centroid) > 0 {
		centroid = pgvector.NewVector(f.Centroid)
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO folders (path, provisional, member_count, centroid, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.Path, f.Provisional, f.MemberCount, centroid, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if len(f.Exemplars) > 0 {
		return r.replaceExemplars(ctx, f.Path, f.Exemplars)
	}
	return nil
}

func (r *FolderRepository) GetByPath(ctx context.Context, path string) (*domain.Folder, error) {
	var f domain.Folder
	var centroid *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT path, provisional, member_count, centroid, created_at, updated_at
		 FROM folders WHERE path = $1`,
		path,
	).Scan(&f.Path, &f.Provisional, &f.MemberCount, &centroid, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, err
	}
	if centroid != nil {
		f.Centroid = centroid.Slice()
	}

	exemplars, err := r.loadExemplars(ctx, path)
	if err != nil {
		return nil, err
	}
	f.Exemplars = exemplars

	return &f, nil
}

// List returns all folders with centroids and exemplars loaded, ordered by
// path for deterministic scoring tie-breaks.
func (r *FolderRepository) List(ctx context.Context) ([]*domain.Folder, error) {
	rows, err := r.db.Query(ctx,
		`SELECT path, provisional, member_count, centroid, created_at, updated_at
		 FROM folders ORDER BY path ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*domain.Folder
	for rows.Next() {
		var f domain.Folder
		var centroid *pgvector.Vector
		if err := rows.Scan(&f.Path, &f.Provisional, &f.MemberCount, &centroid, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if centroid != nil {
			f.Centroid = centroid.Slice()
		}
		folders = append(folders, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, f := range folders {
		exemplars, err := r.loadExemplars(ctx, f.Path)
		if err != nil {
			return nil, err
		}
		f.Exemplars = exemplars
	}

	return folders, nil
}

// ListBySize returns folders whose member count is at least minMembers,
// largest first. Used by the maintenance worker to find cleanup targets.
func (r *FolderRepository) ListBySize(ctx context.Context, minMembers int) ([]*domain.Folder, error) {
	rows, err := r.db.Query(ctx,
		`SELECT path, provisional, member_count, centroid, created_at, updated_at
		 FROM folders WHERE member_count >= $1
		 ORDER BY member_count DESC, path ASC`,
		minMembers,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*domain.Folder
	for rows.Next() {
		var f domain.Folder
		var centroid *pgvector.Vector
		if err := rows.Scan(&f.Path, &f.Provisional, &f.MemberCount, &centroid, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if centroid != nil {
			f.Centroid = centroid.Slice()
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

// UpdateDerived replaces a folder's centroid, exemplar set and member count
// after a membership change.
func (r *FolderRepository) UpdateDerived(ctx context.Context, path string, centroid []float32, exemplars [][]float32, memberCount int) error {
	var centroidArg any
	if len(centroid) > 0 {
		centroidArg = pgvector.NewVector(centroid)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE folders SET centroid = $1, member_count = $2, updated_at = $3 WHERE path = $4`,
		centroidArg, memberCount, time.Now().UTC(), path,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFolderNotFound
	}

	return r.replaceExemplars(ctx, path, exemplars)
}

// MarkStable clears a folder's provisional flag.
func (r *FolderRepository) MarkStable(ctx context.Context, path string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE folders SET provisional = false, updated_at = $1 WHERE path = $2`,
		time.Now().UTC(), path,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFolderNotFound
	}
	return nil
}

// replaceExemplars deletes the existing exemplar set and inserts the new one.
func (r *FolderRepository) replaceExemplars(ctx context.Context, path string, exemplars [][]float32) error {
	_, err := r.db.Exec(ctx, `DELETE FROM folder_exemplars WHERE folder_path = $1`, path)
	if err != nil {
		return err
	}

	for i, exemplar := range exemplars {
		_, err := r.db.Exec(ctx,
			`INSERT INTO folder_exemplars (folder_path, position, embedding)
			 VALUES ($1, $2, $3)`,
			path, i, pgvector.NewVector(exemplar),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *FolderRepository) loadExemplars(ctx context.Context, path string) ([][]float32, error) {
	rows, err := r.db.Query(ctx,
		`SELECT embedding FROM folder_exemplars WHERE folder_path = $1 ORDER BY position ASC`,
		path,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exemplars [][]float32
	for rows.Next() {
		var v pgvector.Vector
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		exemplars = append(exemplars, v.Slice())
	}
	return exemplars, rows.Err()
}
