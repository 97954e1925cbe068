package persistence

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"tender_server/pkg/apperr"
)

// mapError converts driver errors to application errors. Unique violations
// become STORAGE_CONFLICT so the pipeline can log them as skips.
func mapError(operation, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(operation)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apperr.StorageConflict(key)
	}
	return apperr.DatabaseError(operation, err)
}
