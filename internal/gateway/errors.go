package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/containerd/errdefs"
)

// APIError is a non-2xx response from the backend.
// It unwraps to the errdefs class matching the status code.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
	class      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.class
}

// apiErrorBody is the backend's error envelope.
type apiErrorBody struct {
	Message            string `json:"message"`
	ExceptionClassName string `json:"exceptionClassName"`
}

func newAPIError(path string, status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		msg = envelope.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Path: path, StatusCode: status, Message: msg, class: classifyStatus(status)}
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return errdefs.ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return errdefs.ErrInvalidArgument
	case status == http.StatusConflict:
		return errdefs.ErrConflict
	case status == http.StatusUnauthorized:
		return errdefs.ErrUnauthenticated
	case status == http.StatusForbidden:
		return errdefs.ErrPermissionDenied
	case status == http.StatusTooManyRequests:
		return errdefs.ErrResourceExhausted
	case status == http.StatusNotImplemented:
		return errdefs.ErrNotImplemented
	case status >= 500:
		return errdefs.ErrUnavailable
	default:
		return errdefs.ErrUnknown
	}
}

func notFound(connectionID string) error {
	return fmt.Errorf("connection %s: %w", connectionID, errdefs.ErrNotFound)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", errdefs.ErrInvalidArgument, err)
}
