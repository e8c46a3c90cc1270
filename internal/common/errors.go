package common

import (
	"errors"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden access")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict") // e.g., email already registered
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable") // e.g. transcription provider down
	ErrTooManyRequests    = errors.New("too many requests")
)

// APIError carries the message a client is allowed to see, plus the cause for logs.
type APIError struct {
	Kind    error  // one of the sentinel errors above
	Message string // public message
	Detail  string // internal detail, only set outside production
	Payload any    // optional structured payload, e.g. password requirements
	Cause   error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewAPIError builds an APIError of the given kind.
func NewAPIError(kind error, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

func (e *APIError) WithCause(cause error) *APIError {
	e.Cause = cause
	return e
}

func (e *APIError) WithPayload(payload any) *APIError {
	e.Payload = payload
	return e
}

// WithDetail exposes the cause text to clients unless running in production.
func (e *APIError) WithDetail(production bool) *APIError {
	if !production && e.Cause != nil {
		e.Detail = e.Cause.Error()
	}
	return e
}

// HTTPStatusFromError maps domain errors to HTTP status codes. The Kind of an
// APIError decides its status regardless of what the cause wraps.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind != nil {
		return statusFromKind(apiErr.Kind)
	}
	return statusFromKind(err)
}

func statusFromKind(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrTooManyRequests) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return http.StatusServiceUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.UniqueViolation {
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// PublicMessage returns the text that may be shown to a client for err.
func PublicMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	switch HTTPStatusFromError(err) {
	case http.StatusNotFound:
		return "Not found"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusBadRequest:
		return "Bad request"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusTooManyRequests:
		return "Too many requests"
	case http.StatusServiceUnavailable:
		return "Service unavailable"
	default:
		return "Internal server error"
	}
}
