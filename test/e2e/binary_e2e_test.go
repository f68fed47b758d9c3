//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestBinary_ServeAndShutdown(t *testing.T) {
	s := startShop(t)

	code, body := s.request(t, http.MethodGet, "/api/startups?sort=mrr", "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET /api/startups = %d: %s", code, body)
	}
	var env struct {
		Data []struct {
			StartupID string `json:"startup_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode startups: %v", err)
	}
	if len(env.Data) != 3 || env.Data[0].StartupID != "acme-analytics" {
		t.Errorf("startups = %+v", env.Data)
	}

	code, body = s.request(t, http.MethodPost, "/api/offers", offerBody("bolt-pay", "4200"), nil)
	if code != http.StatusCreated {
		t.Fatalf("POST /api/offers = %d: %s", code, body)
	}

	code, _ = s.request(t, http.MethodGet, "/api/ready", "", nil)
	if code != http.StatusOK {
		t.Errorf("GET /api/ready = %d; log:\n%s", code, s.logs(t))
	}

	s.stop(t)

	msgs := strings.Join(s.logMessages(t), "\n")
	for _, want := range []string{"store initialized", "rate limiter initialized", "server starting", "api_event", "shutdown initiated", "shutdown complete"} {
		if !strings.Contains(msgs, want) {
			t.Errorf("log missing %q; messages:\n%s", want, msgs)
		}
	}
}

func TestBinary_ScheduledSync(t *testing.T) {
	s := startShop(t, "STARTUPSHOP_SYNC_SCHEDULE=@every 1s")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && s.upstream.hitCount("acme-analytics") == 0 {
		time.Sleep(100 * time.Millisecond)
	}
	if s.upstream.hitCount("acme-analytics") == 0 {
		t.Fatalf("scheduled sync never reached the upstream; log:\n%s", s.logs(t))
	}

	code, body := s.request(t, http.MethodGet, "/api/startups/acme-analytics/metrics", "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET metrics = %d: %s", code, body)
	}
	if !strings.Contains(string(body), `"source":"snapshot"`) {
		t.Errorf("metrics should come from the synced snapshot: %s", body)
	}
}

func TestBinary_ValidateExitCode(t *testing.T) {
	dir := copyCatalog(t, "https://metrics.example.com")

	out, code := runShop(t, "validate", "--catalog", dir)
	if code == 0 {
		t.Fatalf("validate exited 0 with an invalid listing:\n%s", out)
	}
	if !strings.Contains(out, "dusty-notes") {
		t.Errorf("report should name the invalid listing:\n%s", out)
	}
}

func TestBinary_CatalogJSON(t *testing.T) {
	dir := copyCatalog(t, "https://metrics.example.com")

	out, code := runShop(t, "catalog", "--catalog", dir, "--bucket", "current", "--json")
	if code != 0 {
		t.Fatalf("catalog exited %d:\n%s", code, out)
	}
	var listings []map[string]any
	if err := json.Unmarshal([]byte(out), &listings); err != nil {
		t.Fatalf("decode catalog output: %v\n%s", err, out)
	}
	if len(listings) != 2 {
		t.Errorf("got %d current listings, want 2", len(listings))
	}
}
