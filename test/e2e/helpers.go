package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/hyperengineering/startupshop/internal/api"
	"github.com/hyperengineering/startupshop/internal/catalog"
	"github.com/hyperengineering/startupshop/internal/metrics"
	"github.com/hyperengineering/startupshop/internal/ratelimit"
	"github.com/hyperengineering/startupshop/internal/registry"
	"github.com/hyperengineering/startupshop/internal/store"
	"github.com/hyperengineering/startupshop/internal/validation"
)

const (
	adminToken = "e2e-admin-token"
	syncToken  = "e2e-sync-token"
)

// --- Fixture Loading ---

func fixturesDir() string {
	if dir := os.Getenv("TEST_FIXTURES_DIR"); dir != "" {
		return dir
	}
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "fixtures")
}

// copyCatalog copies the fixture catalog into a temp dir, pointing every
// metrics_url at metricsBase.
func copyCatalog(t *testing.T, metricsBase string) string {
	t.Helper()
	src := filepath.Join(fixturesDir(), "catalog")
	dst := t.TempDir()

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		data = bytes.ReplaceAll(data, []byte("{{METRICS_BASE}}"), []byte(metricsBase))
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		t.Fatalf("copy catalog fixture: %v", err)
	}
	return dst
}

// --- Upstream Metrics Endpoints ---

// upstream serves per-startup metrics documents at /{startup_id}.
type upstream struct {
	srv *httptest.Server

	mu     sync.Mutex
	status map[string]int
	hits   map[string]int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{status: map[string]int{}, hits: map[string]int{}}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")

		u.mu.Lock()
		u.hits[id]++
		status, ok := u.status[id]
		n := u.hits[id]
		u.mu.Unlock()

		if ok && status != http.StatusOK {
			http.Error(w, "upstream unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"startup_id":%q,"mrr_usd":%d,"active_users":%d}`, id, 1000*n, 10*n)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) fail(id string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[id] = status
}

func (u *upstream) heal(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.status, id)
}

func (u *upstream) hitCount(id string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[id]
}

// --- Marketplace Environment ---

type envOptions struct {
	redis       bool
	failureMode ratelimit.FailureMode
	maxRequests int64
}

type envOption func(*envOptions)

func withRedis() envOption {
	return func(o *envOptions) { o.redis = true }
}

func withFailureMode(m ratelimit.FailureMode) envOption {
	return func(o *envOptions) { o.failureMode = m }
}

func withMaxRequests(n int64) envOption {
	return func(o *envOptions) { o.maxRequests = n }
}

// marketplace is a fully wired in-process server over the fixture catalog.
type marketplace struct {
	router   http.Handler
	store    *store.SQLStore
	metrics  *metrics.Service
	upstream *upstream
	redis    *miniredis.Miniredis
}

func newMarketplace(t *testing.T, opts ...envOption) *marketplace {
	t.Helper()

	o := envOptions{failureMode: ratelimit.FailClosed, maxRequests: 5}
	for _, opt := range opts {
		opt(&o)
	}

	m := &marketplace{upstream: newUpstream(t)}

	root := copyCatalog(t, m.upstream.srv.URL)
	cat := catalog.NewService(registry.New(os.DirFS(root), validation.NewSchemaValidator()))

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "shop.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	m.store = db

	var counter ratelimit.Counter
	if o.redis {
		m.redis = miniredis.RunT(t)
		rc, err := ratelimit.DialRedis("redis://"+m.redis.Addr(), 200*time.Millisecond)
		if err != nil {
			t.Fatalf("DialRedis() error = %v", err)
		}
		t.Cleanup(func() { rc.Close() })
		counter = rc
	}
	limiter := ratelimit.New(ratelimit.Config{
		Window:      time.Minute,
		MaxRequests: o.maxRequests,
		FailureMode: o.failureMode,
	}, counter)

	m.metrics = metrics.NewService(cat, db, metrics.NewHTTPFetcher(2*time.Second), metrics.Config{
		CacheTTL:   time.Minute,
		StaleAfter: time.Hour,
	})

	handler := api.NewHandler(api.Deps{
		Catalog:   cat,
		Metrics:   m.metrics,
		Store:     db,
		Limiter:   limiter,
		Gate:      api.NewTokenGate(adminToken),
		SyncToken: syncToken,
		Version:   "e2e",
	})
	m.router = api.NewRouter(handler)
	return m
}

// --- Request Helpers ---

func (m *marketplace) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	m.router.ServeHTTP(rec, req)
	return rec
}

func (m *marketplace) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return m.do(t, http.MethodGet, path, nil, nil)
}

func (m *marketplace) adminGet(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return m.do(t, http.MethodGet, path, nil, http.Header{
		"Cookie": {api.AdminSessionCookie + "=" + adminToken},
	})
}

func (m *marketplace) submitOffer(t *testing.T, body string, client string) *httptest.ResponseRecorder {
	t.Helper()
	h := http.Header{}
	if client != "" {
		h.Set("X-Forwarded-For", client)
	}
	return m.do(t, http.MethodPost, "/api/offers", body, h)
}

func (m *marketplace) sync(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	return m.do(t, http.MethodPost, "/api/internal/metrics/sync", nil, http.Header{
		"X-Sync-Token": {syncToken},
	})
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// decodeData unmarshals the {"data": ...} envelope into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (body %s)", err, rec.Body.String())
	}
}

type problem struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Code   string `json:"code"`
	Errors []struct {
		Field string `json:"field"`
	} `json:"errors"`
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
	var p problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v (body %s)", err, rec.Body.String())
	}
	return p
}

func offerBody(startupID, amount string) string {
	return fmt.Sprintf(`{
		"startup_id": %q,
		"buyer_name": "Jo Buyer",
		"buyer_email": "jo@example.com",
		"offer_amount_usd": %s,
		"message": "Interested in a conversation"
	}`, startupID, amount)
}
