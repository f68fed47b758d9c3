package metrics

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the startup is not in the catalog.
	ErrNotFound = errors.New("startup not found")

	// ErrNotConfigured is returned when the startup declares no metrics_url.
	ErrNotConfigured = errors.New("metrics_url not configured for startup")
)

// FetchError reports a failed live fetch. UpstreamStatus is 0 when no HTTP
// response was received.
type FetchError struct {
	UpstreamStatus int
	Err            error
}

func (e *FetchError) Error() string {
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("metrics fetch failed (%d): %v", e.UpstreamStatus, e.Err)
	}
	return fmt.Sprintf("metrics fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
