package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cristhian-fs/slack-clone/internal/service"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error sends a JSON error response.
func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// errorJSON is an alias for Error (used by middleware).
var errorJSON = Error

var kindStatus = map[error]int{
	service.ErrNotFound:    http.StatusNotFound,
	service.ErrForbidden:   http.StatusForbidden,
	service.ErrBadRequest:  http.StatusBadRequest,
	service.ErrGone:        http.StatusGone,
	service.ErrTooLarge:    http.StatusRequestEntityTooLarge,
	service.ErrUnavailable: http.StatusServiceUnavailable,
}

// mapServiceError translates a service error into the error envelope.
func mapServiceError(c echo.Context, err error) error {
	var se *service.ServiceError
	if !errors.As(err, &se) {
		slog.Error("unhandled service error", "path", c.Path(), "error", err)
		return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}

	status, ok := kindStatus[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		slog.Error("service error", "path", c.Path(), "code", se.Code, "cause", se.Cause)
	}
	return Error(c, status, se.Code, se.Message)
}
