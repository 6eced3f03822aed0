package postgres

import (
	"errors"
	"fmt"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// mapError classifies driver errors into domain kinds.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("%s not found", what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return domain.Conflict("%s already exists", what)
		case foreignKeyViolation:
			return domain.NotFound("%s refers to a missing record", what)
		}
	}
	return domain.Internal(fmt.Sprintf("%s: database error", what), err)
}
