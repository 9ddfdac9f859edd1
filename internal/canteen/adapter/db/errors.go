package db

import (
	"context"
	"errors"
	"fmt"

	"canteen-orders/internal/canteen/app/core"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes surfaced to callers as retryable conflicts.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// translate turns lock waits, timeouts and uniqueness races into core.ErrConflict.
// Every other error is returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled, codeUniqueViolation:
			return fmt.Errorf("%w: %w", core.ErrConflict, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", core.ErrConflict, err)
	}
	return err
}
