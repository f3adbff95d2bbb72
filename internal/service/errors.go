package service

import "errors"

// Error kinds. Handlers translate them into HTTP statuses.
var (
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrBadRequest  = errors.New("bad request")
	ErrGone        = errors.New("gone")
	ErrTooLarge    = errors.New("too large")
	ErrUnavailable = errors.New("unavailable")
	ErrInternal    = errors.New("internal")
)

// ServiceError is a client-facing failure: Kind selects the status, Code and
// Message go into the response body. Cause is for logs only.
type ServiceError struct {
	Kind    error
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string { return e.Message }

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func kind(k error) func(code, message string) *ServiceError {
	return func(code, message string) *ServiceError {
		return &ServiceError{Kind: k, Code: code, Message: message}
	}
}

var (
	NotFound    = kind(ErrNotFound)
	Forbidden   = kind(ErrForbidden)
	BadRequest  = kind(ErrBadRequest)
	Gone        = kind(ErrGone)
	TooLarge    = kind(ErrTooLarge)
	Unavailable = kind(ErrUnavailable)
)

// internalError hides cause from the client behind a generic message.
func internalError(cause error) *ServiceError {
	return &ServiceError{Kind: ErrInternal, Code: "INTERNAL", Message: "internal server error", Cause: cause}
}
