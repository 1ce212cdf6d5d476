package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/pagination"
	"github.com/cloo-solutions/curioai/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ArtifactRepository persists embedded artifacts and doubles as the vector
// index: upsert, nearest-neighbor search and per-folder member retrieval all
// run against the artifacts table.
type ArtifactRepository struct {
	db dbtx
}

func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{db: pool}
}

func NewArtifactRepositoryWithTx(tx pgx.Tx) *ArtifactRepository {
	return &ArtifactRepository{db: tx}
}

func (r *ArtifactRepository) Create(ctx context.Context, a *domain.Artifact) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO artifacts
			(id, title, summary, source_text, fingerprint, embedding, folder_path, cross_links, created_at, updated_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Title, a.Summary, a.SourceText, a.Fingerprint,
		pgvector.NewVector(a.Embedding), nullableString(a.FolderPath), a.CrossLinks,
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *ArtifactRepository) GetByID(ctx context.Context, id string) (*domain.Artifact, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, summary, source_text, fingerprint, embedding, folder_path, cross_links, created_at, updated_at
		 FROM artifacts WHERE id = $1`,
		id,
	)
	return scanArtifact(row)
}

// GetByFingerprint returns the earliest artifact carrying the fingerprint,
// or ErrArtifactNotFound.
func (r *ArtifactRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Artifact, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, summary, source_text, fingerprint, embedding, folder_path, cross_links, created_at, updated_at
		 FROM artifacts WHERE fingerprint = $1
		 ORDER BY created_at ASC
		 LIMIT 1`,
		fingerprint,
	)
	return scanArtifact(row)
}

// NearestNeighbors performs a bounded cosine nearest-neighbor search,
// restricted to a similarity floor. Similarity is 1 - cosine distance.
func (r *ArtifactRepository) NearestNeighbors(ctx context.Context, embedding []float32, limit int, minSimilarity float64) ([]domain.Neighbor, error) {
	if limit <= 0 {
		limit = 50
	}

	vec := pgvector.NewVector(embedding)
	rows, err := r.db.Query(ctx,
		`SELECT id, 1 - (embedding <=> $1) AS similarity
		 FROM artifacts
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, minSimilarity, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var neighbors []domain.Neighbor
	for rows.Next() {
		var n domain.Neighbor
		if err := rows.Scan(&n.ArtifactID, &n.Similarity); err != nil {
			return nil, err
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

// ListUnsorted returns pool artifacts in stable creation order, capped at
// limit. Stable order makes clustering tie-breaks deterministic.
func (r *ArtifactRepository) ListUnsorted(ctx context.Context, limit int) ([]*domain.Artifact, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, summary, source_text, fingerprint, embedding, folder_path, cross_links, created_at, updated_at
		 FROM artifacts WHERE folder_path IS NULL
		 ORDER BY created_at ASC, id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifactRows(rows)
}

// ListByFolder returns a folder's members, earliest created first (the
// merge survivor convention depends on this order).
func (r *ArtifactRepository) ListByFolder(ctx context.Context, folderPath string) ([]*domain.Artifact, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, summary, source_text, fingerprint, embedding, folder_path, cross_links, created_at, updated_at
		 FROM artifacts WHERE folder_path = $1
		 ORDER BY created_at ASC, id ASC`,
		folderPath,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifactRows(rows)
}

func (r *ArtifactRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int, unsortedOnly bool) (*service.ArtifactPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	const columns = `id, title, summary, source_text, fingerprint, embedding, folder_path, cross_links, created_at, updated_at`

	var rows pgx.Rows
	var err error

	switch {
	case cursor != nil && unsortedOnly:
		rows, err = r.db.Query(ctx,
			`SELECT `+columns+` FROM artifacts
			 WHERE folder_path IS NULL AND (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	case cursor != nil:
		rows, err = r.db.Query(ctx,
			`SELECT `+columns+` FROM artifacts
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	case unsortedOnly:
		rows, err = r.db.Query(ctx,
			`SELECT `+columns+` FROM artifacts
			 WHERE folder_path IS NULL
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	default:
		rows, err = r.db.Query(ctx,
			`SELECT `+columns+` FROM artifacts
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanArtifactRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.ArtifactPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdatePlacement records the routing decision for an artifact. An empty
// folderPath routes the artifact to the unsorted pool.
func (r *ArtifactRepository) UpdatePlacement(ctx context.Context, id, folderPath string, crossLinks []string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE artifacts SET folder_path = $1, cross_links = $2, updated_at = $3 WHERE id = $4`,
		nullableString(folderPath), crossLinks, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArtifactNotFound
	}
	return nil
}

// UpdateTitleSummary replaces an artifact's title and summary (used when a
// merge survivor is renamed from the union of its sources).
func (r *ArtifactRepository) UpdateTitleSummary(ctx context.Context, id, title, summary string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE artifacts SET title = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		title, summary, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArtifactNotFound
	}
	return nil
}

// Delete removes an artifact and its vector from the index.
func (r *ArtifactRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM artifacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArtifactNotFound
	}
	return nil
}

func scanArtifact(row pgx.Row) (*domain.Artifact, error) {
	var a domain.Artifact
	var folderPath *string
	var embedding pgvector.Vector
	err := row.Scan(&a.ID, &a.Title, &a.Summary, &a.SourceText, &a.Fingerprint,
		&embedding, &folderPath, &a.CrossLinks, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, err
	}
	a.Embedding = embedding.Slice()
	if folderPath != nil {
		a.FolderPath = *folderPath
	}
	return &a, nil
}

func scanArtifactRows(rows pgx.Rows) ([]*domain.Artifact, error) {
	var results []*domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		var folderPath *string
		var embedding pgvector.Vector
		err := rows.Scan(&a.ID, &a.Title, &a.Summary, &a.SourceText, &a.Fingerprint,
			&embedding, &folderPath, &a.CrossLinks, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, err
		}
		a.Embedding = embedding.Slice()
		if folderPath != nil {
			a.FolderPath = *folderPath
		}
		results = append(results, &a)
	}
	return results, rows.Err()
}
