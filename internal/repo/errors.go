package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound — студент, прогноз, job или расписание отсутствует.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — нарушен уникальный ключ (обычно повторный
	// idempotency_key у job).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — job уже не pending/running, переход запрещён.
	ErrInvalidState = errors.New("invalid state")
)

// SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
