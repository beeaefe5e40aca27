package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrNoClient is returned when a node needs inference but none is configured.
var ErrNoClient = errors.New("no inference client configured")

// Category says how a failed call should be handled.
type Category int

const (
	// CategoryTransient indicates a retry will likely help.
	// Examples: throttling, timeouts, overloaded upstream.
	CategoryTransient Category = iota

	// CategoryPermanent indicates a retry won't help.
	// Examples: bad credentials, unknown model, malformed request.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error wraps a failed call with the operation name and its category.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// NewError creates an Error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPError is a provider response with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Categorize determines how err should be handled. Unknown errors are
// permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	if errors.Is(err, context.Canceled) {
		return CategoryPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		if llmErr.Retryable {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	if code, ok := statusCode(err); ok {
		return categorizeStatus(code)
	}

	if isTransientMessage(err.Error()) {
		return CategoryTransient
	}
	return CategoryPermanent
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

func statusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

func categorizeStatus(code int) Category {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return CategoryTransient
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest, http.StatusNotFound:
		return CategoryPermanent
	}
	if code >= 500 {
		return CategoryTransient
	}
	return CategoryPermanent
}

// isTransientMessage matches throttling and timeout wording from providers
// that do not expose a status code.
func isTransientMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "throttl") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "overloaded")
}
