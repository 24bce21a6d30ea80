// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/cinematch/internal/logging"
)

var (
	// ErrMovieNotFound is returned when no movie has the requested external id.
	ErrMovieNotFound = errors.New("movie not found")

	// ErrUnitOfWorkDone is returned by a unit of work after Commit or Rollback.
	ErrUnitOfWorkDone = errors.New("unit of work already finished")

	// ErrUnsupportedDriver is returned by New for an unknown driver name.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrWriteConflict marks a write that lost to a concurrent transaction,
	// either on a unique key or on a DuckDB write-write conflict.
	ErrWriteConflict = errors.New("write conflict with a concurrent transaction")
)

// closeWithLog closes a resource and logs any error. Query paths defer it on
// their rows so a failing close is seen without failing the read.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// IsUniqueConstraintError reports whether err is a uniqueness violation from
// either DuckDB ("Duplicate key", "UNIQUE constraint") or PostgreSQL (SQLSTATE 23505).
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "sqlstate 23505")
}

// IsTransactionConflict reports whether err is a DuckDB write-write conflict
// between concurrent transactions.
func IsTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "Conflict on tuple deletion")
}

// classifyConflict wraps err with ErrWriteConflict when it is a lost race
// with another transaction. Other errors are returned unchanged.
func classifyConflict(err error) error {
	if IsUniqueConstraintError(err) || IsTransactionConflict(err) {
		return fmt.Errorf("%w: %w", ErrWriteConflict, err)
	}
	return err
}
