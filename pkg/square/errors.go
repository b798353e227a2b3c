package square

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
)

// Square error categories the storefront distinguishes.
const (
	CategoryAuthentication sq.ErrorCategory = "AUTHENTICATION_ERROR"
	CategoryPaymentMethod  sq.ErrorCategory = "PAYMENT_METHOD_ERROR"
	CategoryInvalidRequest sq.ErrorCategory = "INVALID_REQUEST_ERROR"
	CategoryRateLimit      sq.ErrorCategory = "RATE_LIMIT_ERROR"
)

// Error describes a failed Square call. StatusCode is zero when the request
// never produced an HTTP response.
type Error struct {
	StatusCode int
	Errors     []*sq.Error
	cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if first := e.First(); first != nil {
		return fmt.Sprintf("square %d %s/%s: %s", e.StatusCode, first.Category, first.Code, e.Detail())
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("square status %d", e.StatusCode)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// First returns the first structured Square error, if any.
func (e *Error) First() *sq.Error {
	if e == nil {
		return nil
	}
	for _, item := range e.Errors {
		if item != nil {
			return item
		}
	}
	return nil
}

// Category returns the category of the first structured error.
func (e *Error) Category() sq.ErrorCategory {
	if first := e.First(); first != nil {
		return first.Category
	}
	return ""
}

// Code returns the code of the first structured error.
func (e *Error) Code() sq.ErrorCode {
	if first := e.First(); first != nil {
		return first.Code
	}
	return ""
}

// Detail joins the human readable details Square returned.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	var parts []string
	for _, item := range e.Errors {
		if item == nil || item.Detail == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*item.Detail); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "; ")
}

// IsTransport reports whether the call failed before Square answered.
func (e *Error) IsTransport() bool {
	return e != nil && e.StatusCode == 0
}

// AsError extracts a Square failure from an error chain.
func AsError(err error) *Error {
	var target *Error
	if errors.As(err, &target) {
		return target
	}
	return nil
}
