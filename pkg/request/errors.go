package request

import (
	"errors"
	"fmt"
)

// HTTPError is returned for any non-2xx response so callers can branch on
// the status code.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api error: status %d (%s)", e.Status, e.URL)
}

// AsHTTPError unwraps err into an HTTPError if possible.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
