package models

import (
	"errors"
	"fmt"
)

// ErrStatsNotFound means no aggregates were recorded for a strategy yet
var ErrStatsNotFound = errors.New("stats not found")

// ErrorKind classifies a failed request
type ErrorKind string

const (
	KindInvalidArgument     ErrorKind = "invalid_argument"
	KindStoreUnavailable    ErrorKind = "store_unavailable"
	KindConnectionExhausted ErrorKind = "connection_exhausted"
	KindQueryTimeout        ErrorKind = "query_timeout"
	KindCanceled            ErrorKind = "canceled"
	KindSerialization       ErrorKind = "serialization_failure"
	KindInternal            ErrorKind = "internal"
)

// ClientError reports whether the failure was caused by the caller's input
func (k ErrorKind) ClientError() bool {
	return k == KindInvalidArgument
}

// QueryError is the single failure surfaced for a request
type QueryError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewQueryError creates a new query error
func NewQueryError(kind ErrorKind, op string, err error) *QueryError {
	return &QueryError{Kind: kind, Op: op, Err: err}
}

// InvalidArgument builds a KindInvalidArgument error from a message
func InvalidArgument(op, format string, args ...any) *QueryError {
	return NewQueryError(KindInvalidArgument, op, fmt.Errorf(format, args...))
}

func (e *QueryError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal when err carries none
func KindOf(err error) ErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindInternal
}
