package remote

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error codes follow PostgreSQL SQLSTATE values so callers can match them the
// same way regardless of the underlying driver.
const (
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
	CodeNotFound            = "PGRST116"
)

// Error is returned by every collection operation that fails.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, CodeForeignKeyViolation)
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, CodeUniqueViolation)
}

func hasCode(err error, code string) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == code
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{Code: pgErr.Code, Message: pgErr.Message, Err: err}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Code: CodeNotFound, Message: "no rows returned", Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Code: CodeForeignKeyViolation, Message: "foreign key violation", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Code: CodeUniqueViolation, Message: "duplicate key value violates unique constraint", Err: err}
	}

	// SQLite without error translation reports constraints only through the message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &Error{Code: CodeForeignKeyViolation, Message: msg, Err: err}
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &Error{Code: CodeUniqueViolation, Message: msg, Err: err}
	}
	return &Error{Message: msg, Err: err}
}
