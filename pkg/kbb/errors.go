package kbb

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a non-2xx response from the provider, or a 2xx response
// whose body could not be decoded.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("kbb: provider responded with status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the error is a transient 429 throttle.
func (e *ProviderError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsProviderError extracts a ProviderError from an error chain.
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
