package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type LinksRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewLinksRepository(db *dbpg.DB, retries retry.Strategy) *LinksRepository {
	return &LinksRepository{
		db:      db,
		retries: retries,
	}
}

func (r *LinksRepository) Create(ctx context.Context, link *domain.TempLink) error {
	_, err := r.db.Master.ExecContext(ctx, `
		INSERT INTO temp_links (id, image_id, expiration, created_at)
		VALUES ($1, $2, $3, $4)
	`, link.ID, link.ImageID, link.Expiration, link.CreatedAt)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return repository.ErrImageNotFound
		}
		return fmt.Errorf("failed to save temp link: %w", err)
	}
	return nil
}

func (r *LinksRepository) GetByID(ctx context.Context, id string) (*domain.TempLink, error) {
	row, err := r.db.QueryRowWithRetry(ctx, r.retries, `
		SELECT id, image_id, expiration, created_at
		FROM temp_links
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query temp link: %w", err)
	}

	var link domain.TempLink
	err = row.Scan(&link.ID, &link.ImageID, &link.Expiration, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrTempLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan temp link: %w", err)
	}

	return &link, nil
}
