package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"

	"github.com/hyperengineering/startupshop/internal/config"
	"github.com/hyperengineering/startupshop/pkg/shopclient"
)

// testConfig writes a config file pointing at a temp catalog and database.
func testConfig(t *testing.T, catalogRoot string) *config.Config {
	t.Helper()
	installCapture(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "startupshop.yaml")
	body := "catalog:\n  root: " + catalogRoot + "\n" +
		"database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "shop.db") + "\n" +
		"rate_limit:\n  window: 1m\n  max_requests: 2\n  failure_mode: fail_closed\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STARTUPSHOP_SYNC_TOKEN", "sync-secret")
	t.Setenv("STARTUPSHOP_ADMIN_SESSION_TOKEN", "admin-secret")

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) (*app, *shopclient.Client, string) {
	t.Helper()

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)

	client, err := shopclient.New(shopclient.Config{BaseURL: srv.URL, SyncToken: "sync-secret"})
	if err != nil {
		t.Fatalf("shopclient.New() error = %v", err)
	}
	return a, client, srv.URL
}

func readyStatus(t *testing.T, baseURL string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(baseURL + "/api/ready")
	if err != nil {
		t.Fatalf("GET /api/ready: %v", err)
	}
	defer resp.Body.Close()

	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode ready: %v", err)
	}
	return resp.StatusCode, env.Data
}

func TestApp_ServesCatalogAndOffers(t *testing.T) {
	cfg := testConfig(t, validCatalog(t))
	a, client, _ := startApp(t, cfg)
	ctx := context.Background()

	health, err := client.Health(ctx)
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Status != "ok" || health.Version != Version {
		t.Errorf("health = %+v", health)
	}

	startups, err := client.Startups(ctx, shopclient.StartupFilter{Sort: "mrr"})
	if err != nil {
		t.Fatalf("Startups() error = %v", err)
	}
	if len(startups) != 3 || startups[0].StartupID != "acme" {
		t.Fatalf("startups = %+v, want acme first of 3", startups)
	}

	receipt, err := client.SubmitOffer(ctx, shopclient.Offer{
		StartupID:      "acme",
		BuyerName:      "Jo Buyer",
		BuyerEmail:     "jo@example.com",
		OfferAmountUSD: decimal.RequireFromString("125000.50"),
		Message:        "Interested",
	}, "key-1")
	if err != nil {
		t.Fatalf("SubmitOffer() error = %v", err)
	}
	if receipt.ID == "" || receipt.StartupID != "acme" {
		t.Errorf("receipt = %+v", receipt)
	}

	offers, err := a.store.ListOffers(ctx, 10)
	if err != nil {
		t.Fatalf("ListOffers() error = %v", err)
	}
	if len(offers) != 1 || !offers[0].OfferAmountUSD.Equal(decimal.RequireFromString("125000.50")) {
		t.Errorf("stored offers = %+v", offers)
	}
}

func TestApp_MemoryLimiterReadiness(t *testing.T) {
	cfg := testConfig(t, validCatalog(t))
	_, _, baseURL := startApp(t, cfg)

	code, data := readyStatus(t, baseURL)
	if code != http.StatusOK {
		t.Fatalf("ready status = %d, data %v", code, data)
	}
	checks, _ := data["checks"].(map[string]any)
	redis, _ := checks["redis"].(map[string]any)
	if redis["detail"] != "memory_fallback" {
		t.Errorf("redis check = %v, want memory_fallback", redis)
	}
}

func TestApp_RedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t, validCatalog(t))
	cfg.RateLimit.RedisURL = "redis://" + mr.Addr()
	_, client, baseURL := startApp(t, cfg)

	code, data := readyStatus(t, baseURL)
	if code != http.StatusOK {
		t.Fatalf("ready status = %d, data %v", code, data)
	}
	checks, _ := data["checks"].(map[string]any)
	redis, _ := checks["redis"].(map[string]any)
	if redis["detail"] != "redis_ok" {
		t.Errorf("redis check = %v, want redis_ok", redis)
	}

	offer := shopclient.Offer{
		StartupID:      "bolt",
		BuyerName:      "Jo Buyer",
		BuyerEmail:     "jo@example.com",
		OfferAmountUSD: decimal.NewFromInt(1000),
		Message:        "Hello",
	}
	for i := 0; i < 2; i++ {
		if _, err := client.SubmitOffer(context.Background(), offer, ""); err != nil {
			t.Fatalf("offer %d: %v", i+1, err)
		}
	}
	_, err := client.SubmitOffer(context.Background(), offer, "")
	var apiErr *shopclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("third offer error = %v, want 429", err)
	}
	if len(mr.Keys()) == 0 {
		t.Error("expected rate limit counters in redis")
	}
}

func TestApp_InvalidFailureMode(t *testing.T) {
	cfg := testConfig(t, validCatalog(t))
	cfg.RateLimit.FailureMode = "fail_sideways"

	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown failure mode")
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf strings.Builder

	newLogger(&buf, config.LogConfig{Level: "info", Format: "json"}).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json format output = %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, config.LogConfig{Level: "info", Format: "text"}).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text format output = %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"}).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestSyncCommand_Remote(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/internal/metrics/sync" || r.Header.Get("X-Sync-Token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"total":3,"successful":2,"failed":1,"results":[]}}`))
	}))
	defer srv.Close()

	t.Setenv("STARTUPSHOP_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("STARTUPSHOP_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	stdout, _, err := executeCmd(t, "sync", "--server", srv.URL, "--token", "tok")
	if err != nil {
		t.Fatalf("sync error = %v", err)
	}
	if !strings.Contains(stdout, "Synced 3 startups: 2 successful, 1 failed") {
		t.Errorf("stdout = %q", stdout)
	}

	_, _, err = executeCmd(t, "sync", "--server", srv.URL, "--token", "wrong")
	if err == nil {
		t.Error("expected error for rejected sync token")
	}
}
