package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"order-bench/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres SQLSTATE codes the classifier cares about
const (
	sqlStateTooManyConnections = "53300"
	sqlStateQueryCanceled      = "57014"
	sqlStateClassConnection    = "08"
)

// Classify maps a driver error to the request error taxonomy. Errors that are
// already classified pass through unchanged.
func Classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var qe *models.QueryError
	if errors.As(err, &qe) {
		return err
	}
	return models.NewQueryError(kindOf(ctx, err), op, err)
}

func kindOf(ctx context.Context, err error) models.ErrorKind {
	// A cancelled statement can surface as a driver error rather than ctx.Err().
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.KindQueryTimeout
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return models.KindCanceled
	}

	if code := sqlState(err); code != "" {
		switch {
		case code == sqlStateTooManyConnections:
			return models.KindConnectionExhausted
		case code == sqlStateQueryCanceled:
			return models.KindQueryTimeout
		case strings.HasPrefix(code, sqlStateClassConnection):
			return models.KindStoreUnavailable
		}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return models.KindStoreUnavailable
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return models.KindStoreUnavailable
	case strings.Contains(err.Error(), "database is closed"):
		return models.KindStoreUnavailable
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return models.KindQueryTimeout
		}
		return models.KindStoreUnavailable
	case isScanError(err):
		return models.KindSerialization
	}

	return models.KindInternal
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// database/sql reports conversion failures as plain formatted errors
func isScanError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sql: Scan error") ||
		strings.Contains(msg, "converting NULL") ||
		strings.Contains(msg, "missing destination name")
}
