package upstream

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks any failure to obtain a complete response from an
// upstream: DNS, refused or reset connections, timeouts, truncated bodies and
// open circuit breakers.
var ErrUnavailable = errors.New("upstream unavailable")

// Error carries the upstream and URL of a failed call.
type Error struct {
	Upstream string
	URL      string
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s upstream: %v", e.Upstream, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return target == ErrUnavailable
}
