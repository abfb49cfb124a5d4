package domain

import "fmt"

// UpstreamError is a non-2xx response from a completion provider, normalised
// so callers can classify it without knowing which SDK produced it.
type UpstreamError struct {
	Provider   string
	StatusCode int
	// Status is the provider's symbolic status, e.g. RESOURCE_EXHAUSTED.
	Status  string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s: status %d (%s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *UpstreamError) StatusName() string {
	return e.Status
}
