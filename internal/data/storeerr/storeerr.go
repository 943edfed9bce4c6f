package storeerr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict indicates a unique or foreign-key violation.
	ErrConflict = errors.New("store: conflict")
	// ErrRetryable indicates a transient failure worth retrying.
	ErrRetryable = errors.New("store: retryable")
)

// Classify maps driver and GORM failures onto the store sentinels so callers
// can branch with errors.Is instead of inspecting SQLSTATE themselves.
// Unclassifiable errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrRetryable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrRetryable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return errors.Join(ErrConflict, err) // unique_violation
		case "23503":
			return errors.Join(ErrConflict, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return errors.Join(ErrRetryable, err) // serialization/deadlock/lock_not_available
		}
		return err
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "already exists"):
		return errors.Join(ErrConflict, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "temporar"):
		return errors.Join(ErrRetryable, err)
	}
	return err
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsRetryable(err error) bool { return errors.Is(err, ErrRetryable) }
