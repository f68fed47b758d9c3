// Package shopclient is a Go client for the startupshop HTTP API.
package shopclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of a non-JSON error body is kept.
const maxErrorBody = 4096

// Client talks to a startupshop server
type Client struct {
	baseURL   string
	syncToken string
	http      *http.Client
}

// New creates a new client
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid BaseURL %q", config.BaseURL)
	}

	// Set defaults
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		syncToken: config.SyncToken,
		http:      &http.Client{Timeout: config.Timeout},
	}, nil
}

// Health calls GET /api/health
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if _, err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Startups lists ranked startups matching f
func (c *Client) Startups(ctx context.Context, f StartupFilter) ([]Startup, error) {
	q := url.Values{}
	for k, v := range map[string]string{
		"category":   f.Category,
		"stage":      f.Stage,
		"bucket":     f.Bucket,
		"visibility": f.Visibility,
		"sort":       f.Sort,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	path := "/api/startups"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []Startup
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Startup fetches one startup by ID
func (c *Client) Startup(ctx context.Context, id string) (*Startup, error) {
	var out Startup
	if _, err := c.do(ctx, http.MethodGet, "/api/startups/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validation fetches the catalog validation record of one startup
func (c *Client) Validation(ctx context.Context, id string) (*Validation, error) {
	var out Validation
	if _, err := c.do(ctx, http.MethodGet, "/api/startups/"+url.PathEscape(id)+"/validation", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metrics fetches the metrics of one startup. refresh forces a live fetch.
func (c *Client) Metrics(ctx context.Context, id string, refresh bool) (*Metrics, error) {
	path := "/api/startups/" + url.PathEscape(id) + "/metrics"
	if refresh {
		path += "?refresh=1"
	}
	var out Metrics
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitOffer posts an offer. A non-empty idempotencyKey makes retries safe;
// the receipt reports whether the server replayed an earlier offer.
func (c *Client) SubmitOffer(ctx context.Context, offer Offer, idempotencyKey string) (*OfferReceipt, error) {
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set("Idempotency-Key", idempotencyKey)
	}
	var out OfferReceipt
	resp, err := c.do(ctx, http.MethodPost, "/api/offers", headers, offer, &out)
	if err != nil {
		return nil, err
	}
	out.Replayed = resp.Header.Get("X-Idempotent-Replay") == "true"
	return &out, nil
}

// SyncMetrics triggers a metrics sync on the server
func (c *Client) SyncMetrics(ctx context.Context) (*SyncSummary, error) {
	if c.syncToken == "" {
		return nil, errors.New("sync token not configured")
	}
	headers := http.Header{}
	headers.Set("X-Sync-Token", c.syncToken)

	var out SyncSummary
	if _, err := c.do(ctx, http.MethodPost, "/api/internal/metrics/sync", headers, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends a request and decodes the {data: ...} envelope into out.
func (c *Client) do(ctx context.Context, method, path string, headers http.Header, body, out interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, decodeAPIError(resp)
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return resp, fmt.Errorf("decode response data: %w", err)
		}
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Status == 0 {
		apiErr = &APIError{Detail: strings.TrimSpace(string(raw))}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
