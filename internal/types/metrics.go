package types

import (
	"encoding/json"
	"time"
)

// FetchVia records which caller triggered a metrics fetch.
type FetchVia string

const (
	FetchViaAPI     FetchVia = "api"
	FetchViaSyncJob FetchVia = "sync_job"
)

// MetricsSnapshot is an append-only record of one metrics fetch attempt.
// Payload is nil when the fetch failed; SourceStatus is 0 when no HTTP
// response was received.
type MetricsSnapshot struct {
	ID           string          `json:"id"`
	StartupID    string          `json:"startup_id"`
	FetchedAt    time.Time       `json:"fetched_at"`
	Payload      json.RawMessage `json:"payload"`
	SourceStatus int             `json:"source_status,omitempty"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"error_message,omitempty"`
	FetchedVia   FetchVia        `json:"fetched_via"`
}
