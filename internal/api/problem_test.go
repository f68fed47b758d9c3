package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperengineering/startupshop/internal/store"
	"github.com/hyperengineering/startupshop/internal/validation"
)

func TestProblem_JSONSerialization(t *testing.T) {
	p := Problem{
		Type:     "https://startupshop.dev/errors/unauthorized",
		Title:    "Unauthorized",
		Status:   401,
		Detail:   "Missing or invalid sync token",
		Code:     "sync_unauthorized",
		Instance: "/api/internal/metrics/sync",
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("failed to marshal Problem: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal Problem JSON: %v", err)
	}

	want := map[string]interface{}{
		"type":     "https://startupshop.dev/errors/unauthorized",
		"title":    "Unauthorized",
		"status":   float64(401),
		"detail":   "Missing or invalid sync token",
		"code":     "sync_unauthorized",
		"instance": "/api/internal/metrics/sync",
	}
	for k, v := range want {
		if decoded[k] != v {
			t.Errorf("%s = %v, want %v", k, decoded[k], v)
		}
	}
}

func TestWriteProblem_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/startups", nil)

	WriteProblem(w, r, http.StatusBadRequest, "Invalid stage filter")

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/problem+json" {
		t.Errorf("Content-Type = %v, want application/problem+json", contentType)
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestWriteProblem_DefaultCodes(t *testing.T) {
	tests := []struct {
		status   int
		typeURI  string
		wantCode string
	}{
		{http.StatusBadRequest, "https://startupshop.dev/errors/bad-request", "bad_request"},
		{http.StatusNotFound, "https://startupshop.dev/errors/not-found", "not_found"},
		{http.StatusRequestEntityTooLarge, "https://startupshop.dev/errors/payload-too-large", "payload_too_large"},
		{http.StatusTooManyRequests, "https://startupshop.dev/errors/rate-limit", "rate_limit_exceeded"},
		{http.StatusUnprocessableEntity, "https://startupshop.dev/errors/unprocessable-entity", "unprocessable_entity"},
		{http.StatusBadGateway, "https://startupshop.dev/errors/upstream-error", "upstream_fetch_failed"},
		{http.StatusServiceUnavailable, "https://startupshop.dev/errors/service-unavailable", "service_unavailable"},
		{http.StatusTeapot, "https://startupshop.dev/errors/unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/offers", nil)

			WriteProblem(w, r, tt.status, "detail")

			var p Problem
			if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
				t.Fatalf("failed to unmarshal response body: %v", err)
			}
			if p.Type != tt.typeURI {
				t.Errorf("type = %v, want %v", p.Type, tt.typeURI)
			}
			if p.Code != tt.wantCode {
				t.Errorf("code = %v, want %v", p.Code, tt.wantCode)
			}
			if p.Instance != "/api/offers" {
				t.Errorf("instance = %v, want /api/offers", p.Instance)
			}
		})
	}
}

func TestWriteProblemCode_OverridesCodeAndAnnotatesEvent(t *testing.T) {
	ev := &Event{}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/offers", nil)
	r = r.WithContext(WithEvent(r.Context(), ev))

	WriteProblemCode(w, r, http.StatusBadRequest, "invalid_json", "Invalid JSON body")

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if p.Code != "invalid_json" {
		t.Errorf("code = %q, want invalid_json", p.Code)
	}
	if ev.ErrorCode != "invalid_json" {
		t.Errorf("event error code = %q, want invalid_json", ev.ErrorCode)
	}
}

func TestWriteProblemWithErrors(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/offers", nil)

	errs := []validation.ValidationError{
		{Field: "/buyer_name", Message: "must be at least 2 characters"},
		{Field: "/", Message: "must have required property 'message'"},
	}
	WriteProblemWithErrors(w, r, http.StatusBadRequest, "schema_validation_failed", "Offer payload validation failed", errs)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", w.Code)
	}

	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if p.Code != "schema_validation_failed" {
		t.Errorf("code = %q, want schema_validation_failed", p.Code)
	}
	if len(p.Errors) != 2 {
		t.Fatalf("errors length = %d, want 2", len(p.Errors))
	}
	if p.Errors[0].Field != "/buyer_name" {
		t.Errorf("errors[0].field = %q, want /buyer_name", p.Errors[0].Field)
	}
}

func TestWriteProblemWithErrors_NilErrorsEncodesEmptyList(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/offers", nil)

	WriteProblemWithErrors(w, r, http.StatusBadRequest, "", "bad", nil)

	var decoded map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	list, ok := decoded["errors"].([]interface{})
	if !ok || len(list) != 0 {
		t.Errorf("errors = %v, want []", decoded["errors"])
	}
	if decoded["code"] != "bad_request" {
		t.Errorf("code = %v, want bad_request", decoded["code"])
	}
}

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("lookup: %w", store.ErrNotFound), http.StatusNotFound},
		{"invalid offer", store.ErrInvalidOffer, http.StatusBadRequest},
		{"unknown", errors.New("disk I/O error at /var/lib/secret.db"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/admin/offers", nil)

			MapStoreError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var p Problem
			if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
				t.Fatalf("failed to unmarshal response body: %v", err)
			}
			// Never expose internal error details to client
			if tt.wantStatus == http.StatusInternalServerError && p.Detail != "Internal Server Error" {
				t.Errorf("detail = %q, want generic message", p.Detail)
			}
		})
	}
}

func TestWriteData_Envelope(t *testing.T) {
	w := httptest.NewRecorder()

	writeData(w, http.StatusCreated, map[string]string{"id": "01ABC"})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if body.Data["id"] != "01ABC" {
		t.Errorf("data.id = %q, want 01ABC", body.Data["id"])
	}
}
