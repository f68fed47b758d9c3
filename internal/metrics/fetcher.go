package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Compile-time interface check
var _ Fetcher = (*HTTPFetcher)(nil)

const (
	// DefaultFetchTimeout bounds one outbound metrics request.
	DefaultFetchTimeout = 10 * time.Second

	// MaxPayloadBytes caps the metrics response body.
	MaxPayloadBytes = 1 << 20
)

// Response is a successful metrics fetch.
type Response struct {
	Status  int
	Payload json.RawMessage
}

// Fetcher retrieves a JSON metrics document. Failures are returned as
// *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// HTTPFetcher fetches metrics over HTTP GET.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
// A zero timeout uses DefaultFetchTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch performs the GET. Any non-2xx status or non-JSON body is a failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			UpstreamStatus: resp.StatusCode,
			Err:            fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadBytes+1))
	if err != nil {
		return nil, &FetchError{UpstreamStatus: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > MaxPayloadBytes {
		return nil, &FetchError{
			UpstreamStatus: resp.StatusCode,
			Err:            fmt.Errorf("response exceeds %d bytes", MaxPayloadBytes),
		}
	}
	if !json.Valid(body) {
		return nil, &FetchError{
			UpstreamStatus: resp.StatusCode,
			Err:            errors.New("response was not valid JSON"),
		}
	}

	return &Response{Status: resp.StatusCode, Payload: json.RawMessage(body)}, nil
}
