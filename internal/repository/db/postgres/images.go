package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"

	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

const selectImage = `
	SELECT i.id, i.owner_id, i.file_path, i.parent_id,
	       i.rule_id, r.height, i.format, i.created_at
	FROM images i
	LEFT JOIN thumb_rules r ON r.id = i.rule_id
`

type ImagesRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewImagesRepository(db *dbpg.DB, retries retry.Strategy) *ImagesRepository {
	return &ImagesRepository{
		db:      db,
		retries: retries,
	}
}

// CreateTree inserts a root image and its thumbnails in one transaction.
func (r *ImagesRepository) CreateTree(ctx context.Context, root *domain.Image, children []domain.Image) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO images (id, owner_id, file_path, parent_id, rule_id, format, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := tx.ExecContext(ctx, query,
		root.ID,
		root.OwnerID,
		nullString(root.FilePath),
		nil,
		nil,
		root.Format,
		root.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to save root image: %w", mapError(err))
	}

	for _, child := range children {
		if _, err := tx.ExecContext(ctx, query,
			child.ID,
			child.OwnerID,
			nullString(child.FilePath),
			child.ParentID,
			child.RuleID,
			child.Format,
			child.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to save thumbnail %s: %w", child.ID, mapError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit image tree: %w", err)
	}

	return nil
}

func (r *ImagesRepository) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	row, err := r.db.QueryRowWithRetry(ctx, r.retries, selectImage+` WHERE i.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query image: %w", err)
	}

	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}

	return &img, nil
}

// ListRoots returns the owner's uploaded images, newest first.
func (r *ImagesRepository) ListRoots(ctx context.Context, ownerID string, limit, offset int) ([]domain.Image, error) {
	query := selectImage + `
		WHERE i.owner_id = $1 AND i.parent_id IS NULL
		ORDER BY i.created_at DESC, i.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// ListChildren returns the thumbnails of all given roots ordered by rule height.
func (r *ImagesRepository) ListChildren(ctx context.Context, parentIDs []string) ([]domain.Image, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	query := selectImage + `
		WHERE i.parent_id = ANY($1)
		ORDER BY i.parent_id, r.height
	`

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, pq.Array(parentIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query thumbnails: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(row scanner) (domain.Image, error) {
	var (
		img      domain.Image
		filePath sql.NullString
		parentID sql.NullString
		ruleID   sql.NullInt64
		height   sql.NullInt64
	)

	err := row.Scan(
		&img.ID,
		&img.OwnerID,
		&filePath,
		&parentID,
		&ruleID,
		&height,
		&img.Format,
		&img.CreatedAt,
	)
	if err != nil {
		return domain.Image{}, err
	}

	img.FilePath = filePath.String
	img.ParentID = parentID.String
	img.RuleID = ruleID.Int64
	img.RuleHeight = int(height.Int64)

	return img, nil
}

func scanImages(rows *sql.Rows) ([]domain.Image, error) {
	var images []domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return images, nil
}
