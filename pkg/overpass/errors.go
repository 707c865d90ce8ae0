package overpass

import (
	"context"
	"errors"
	"fmt"
	"net"

	"geoguidego/pkg/request"
)

// Kind classifies a fetch failure. The engine maps each kind to a fixed
// cooldown before the next fetch attempt.
type Kind int

const (
	KindUnknown Kind = iota
	KindRateLimited
	KindTimeout
	KindServerError
	KindHTTPError
	KindNoConnectivity
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindServerError:
		return "server_error"
	case KindHTTPError:
		return "http_error"
	case KindNoConnectivity:
		return "no_connectivity"
	default:
		return "unknown"
	}
}

// Error is a classified Overpass failure.
type Error struct {
	Kind   Kind
	Status int // HTTP status when applicable, else 0
	cause  error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("overpass: %s (status %d)", e.Kind, e.Status)
	}
	if e.cause != nil {
		return fmt.Sprintf("overpass: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("overpass: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ClassifyError maps a transport or status error onto the taxonomy.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	if he, ok := request.AsHTTPError(err); ok {
		switch {
		case he.Status == 429:
			return &Error{Kind: KindRateLimited, Status: he.Status, cause: err}
		case he.Status == 504:
			return &Error{Kind: KindTimeout, Status: he.Status, cause: err}
		case he.Status >= 500 && he.Status < 600:
			return &Error{Kind: KindServerError, Status: he.Status, cause: err}
		default:
			return &Error{Kind: KindHTTPError, Status: he.Status, cause: err}
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindNoConnectivity, cause: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, cause: err}
	}

	return &Error{Kind: KindUnknown, cause: err}
}
