package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindAccessDenied Kind = "access_denied"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindTransient    Kind = "transient"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind   Kind
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Kind: kindForStatus(status), Status: status, Code: code, Err: err}
}

func Validation(code string, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Code: code, Err: fmt.Errorf(format, args...)}
}

func Denied(code string) *Error {
	return &Error{Kind: KindAccessDenied, Status: http.StatusForbidden, Code: code, Err: errors.New("access denied")}
}

func NotFound(code string, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Code: code, Err: fmt.Errorf(format, args...)}
}

func Conflict(code string, err error) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Code: code, Err: err}
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Status: http.StatusServiceUnavailable, Code: "transient", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Code: "internal", Err: err}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err; unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromDB maps gorm and Postgres errors onto the error taxonomy. Errors that
// already carry a kind pass through unchanged.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Code: "not_found", Err: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return Conflict("conflict", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return Conflict("unique_violation", err)
		case "23514":
			return Conflict("check_violation", err)
		case "23503":
			return Validation("foreign_key_violation", "%s", pgErr.Message)
		case "22007", "22008":
			return Validation("invalid_datetime", "%s", pgErr.Message)
		case "40001", "40P01", "55P03", "57014", "57P01", "57P03", "53300":
			return Transient(err)
		}
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return Transient(err)
		}
		return Internal(err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return Transient(err)
	}
	return Internal(err)
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return KindAccessDenied
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return KindTransient
	default:
		return KindInternal
	}
}
