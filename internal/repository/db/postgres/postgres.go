package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"img-thumbs/internal/repository"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// mapError translates constraint violations into repository errors and
// keeps the driver error in the chain.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		return fmt.Errorf("%w (%s): %w", repository.ErrDuplicateKey, pqErr.Constraint, err)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w (%s): %w", repository.ErrForeignKeyViolation, pqErr.Constraint, err)
	default:
		return err
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
