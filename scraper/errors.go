package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrInvalidStorefront marks a page saying the requested listing does not exist.
var ErrInvalidStorefront = errors.New("invalid storefront")

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden is a 403 from the storefront, usually an identity or relay
// that has been flagged.
type ErrForbidden struct {
	Status int
	Err    error
}

func (e ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden (status %d): %v", e.Status, e.Err)
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound is a 404; the URL is not retried.
type ErrNotFound struct {
	Status int
	Err    error
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("not found (status %d): %v", e.Status, e.Err)
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the anti-bot layer rejected the request. Status
// is 503 or 429, or 200 when the body was a robot check page.
type ErrRateLimited struct {
	Status int
	Err    error
}

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited (status %d): %v", e.Status, e.Err)
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	if errors.Is(err, ErrInvalidStorefront) {
		return "invalid_storefront"
	}
	return "other"
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Status: statusCode, Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Status: statusCode, Err: wrapped}
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return ErrRateLimited{Status: statusCode, Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
