package db

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// The unique index is the source of truth for name uniqueness; pre-checks in
// the services are only a fast rejection path.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// MapError translates driver errors into the shared error taxonomy.
func MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return shared.ErrNotFound
	case IsUniqueViolation(err):
		return shared.ErrDuplicateIdentity
	case isUnreachable(err):
		return fmt.Errorf("platform/db: %w: %s", shared.ErrStorageUnavailable, err)
	default:
		return fmt.Errorf("platform/db: %w: %s", shared.ErrQueryFailed, err)
	}
}

func isUnreachable(err error) bool {
	if pgconn.Timeout(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
