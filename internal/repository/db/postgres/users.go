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

type UsersRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewUsersRepository(db *dbpg.DB, retries retry.Strategy) *UsersRepository {
	return &UsersRepository{
		db:      db,
		retries: retries,
	}
}

func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Master.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, `WHERE username = $1`, username)
}

func (r *UsersRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *UsersRepository) get(ctx context.Context, where string, arg any) (*domain.User, error) {
	row, err := r.db.QueryRowWithRetry(ctx, r.retries,
		`SELECT id, username, password_hash, created_at FROM users `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	var user domain.User
	err = row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}
