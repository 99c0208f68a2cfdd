package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failed backend operation.
type Kind int

const (
	// KindUnknown covers failures that fit no other bucket.
	KindUnknown Kind = iota
	// KindTimeout is a request that exceeded its deadline. Retried with backoff.
	KindTimeout
	// KindConnect is a transport-level failure (refused, DNS, TLS).
	KindConnect
	// KindAuthExpired is a 401 on a request issued with a previously valid token.
	KindAuthExpired
	// KindAuthInvalid is a rejected authentication attempt or a 401 after re-auth.
	KindAuthInvalid
	// KindNotFound is a 404 for a resource the caller named.
	KindNotFound
	// KindValidation is a 400: the backend rejected the request shape.
	KindValidation
	// KindServer is a 5xx backend-side failure.
	KindServer
	// KindParse is a response body that did not match the expected shape.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnect:
		return "connect"
	case KindAuthExpired:
		return "auth expired"
	case KindAuthInvalid:
		return "auth invalid"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server error"
	case KindParse:
		return "parse error"
	default:
		return "unknown"
	}
}

// Error is the failure type returned by every gateway operation.
type Error struct {
	Kind Kind
	Op   string // operation label, e.g. "list agents"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain. Non-gateway errors
// report KindUnknown.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// classifyStatus maps an HTTP status code to a failure kind.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthExpired
	case status == http.StatusForbidden:
		return KindAuthInvalid
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// classifyTransport maps a transport error to a failure kind.
func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindConnect
}
