package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Error codes carried by DomainError.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_FAILED"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewNotFound reports a missing resource using its display name, e.g. "Ticket".
func NewNotFound(resource string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("Resource").(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// StatusTable resolves the HTTP status written for an error code. Codes
// missing from the table fall back to the status carried by the error.
type StatusTable map[string]int

// DefaultStatusTable keeps the historical contract where a caller that is
// authenticated but not allowed to touch a ticket receives 401.
func DefaultStatusTable() StatusTable {
	return StatusTable{
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusUnauthorized,
		CodeNotFound:     http.StatusNotFound,
		CodeValidation:   http.StatusBadRequest,
		CodeConflict:     http.StatusConflict,
		CodeInternal:     http.StatusInternalServerError,
	}
}

// StrictStatusTable separates forbidden (403) from unauthenticated (401).
func StrictStatusTable() StatusTable {
	table := DefaultStatusTable()
	table[CodeForbidden] = http.StatusForbidden
	return table
}

// Status returns the response status for err.
func (t StatusTable) Status(err *DomainError) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := t[err.Code]; ok {
		return status
	}
	if err.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return err.HTTPStatus
}
