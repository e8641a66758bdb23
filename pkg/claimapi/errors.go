package claimapi

import (
	"errors"
	"fmt"
)

// NoErrorDetails is the body text used when a failed response body cannot be read.
const NoErrorDetails = "No error details"

// ErrInvalidJSON is wrapped when a successful response body is not valid JSON.
var ErrInvalidJSON = errors.New("invalid json response")

// APIError reports a response whose status is outside the success range.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Body)
}

// TransportError reports a request that produced no response.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by an APIError anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
