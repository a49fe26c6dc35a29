package httpclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrInvalidRefresh = errors.New("refresh response is missing tokens")
)

// StatusError is a response the backend answered with a non-2xx status.
type StatusError struct {
	Route      string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Route, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Route, e.StatusCode, e.Message)
}

// TransportError means no usable response arrived (dial, timeout, cancellation).
type TransportError struct {
	Route string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Route, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

const maxErrorMessage = 512

func newStatusError(route string, status int, body []byte) *StatusError {
	return &StatusError{
		Route:      route,
		StatusCode: status,
		Message:    errorMessage(body),
		Body:       body,
	}
}

// errorMessage pulls a human readable message out of an error body. The
// backend answers either {"message": "..."} or {"error": "..."}, sometimes
// plain text.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error", "error.message"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
		return ""
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage] + "...(truncated)"
	}
	return msg
}
