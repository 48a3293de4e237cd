package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a model client failure.
type ErrorKind string

const (
	// KindTransport means the request never produced an HTTP response.
	KindTransport ErrorKind = "transport"
	// KindHTTP means the service answered with a non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindService means a 2xx answer that carried no usable reply.
	KindService ErrorKind = "service"
)

// Error is returned by Client implementations for every upstream failure.
// Body holds a truncated copy of the upstream response for logs only.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model service %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model service %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
