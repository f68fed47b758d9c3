package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantStatus int
	}{
		{name: "json object", status: 200, body: `{"mrr":42}`, wantStatus: 200},
		{name: "2xx other than 200", status: 203, body: `[1,2]`, wantStatus: 203},
		{name: "server error", status: 500, body: `{}`, wantErr: true, wantStatus: 500},
		{name: "not found", status: 404, body: `nope`, wantErr: true, wantStatus: 404},
		{name: "non-json body", status: 200, body: `<html>`, wantErr: true, wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)

			if tt.wantErr {
				var fetchErr *FetchError
				require.ErrorAs(t, err, &fetchErr)
				assert.Equal(t, tt.wantStatus, fetchErr.UpstreamStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.JSONEq(t, tt.body, string(resp.Payload))
		})
	}
}

func TestHTTPFetcher_OversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"` + strings.Repeat("x", MaxPayloadBytes) + `"`))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)

	assert.ErrorContains(t, err, "exceeds")
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(20*time.Millisecond).Fetch(context.Background(), srv.URL)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.UpstreamStatus)
}

func TestFetchError_Message(t *testing.T) {
	withStatus := &FetchError{UpstreamStatus: 502, Err: assert.AnError}
	assert.Contains(t, withStatus.Error(), "(502)")
	assert.ErrorIs(t, withStatus, assert.AnError)

	noStatus := &FetchError{Err: assert.AnError}
	assert.NotContains(t, noStatus.Error(), "(")
}
