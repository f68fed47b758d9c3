package shopclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the client configuration
type Config struct {
	BaseURL   string        // Server URL, e.g. http://localhost:8080
	SyncToken string        // Sent as X-Sync-Token on SyncMetrics
	Timeout   time.Duration // Request timeout (default: 30 seconds)
}

// StartupFilter narrows a Startups call. Empty fields do not filter.
type StartupFilter struct {
	Category   string
	Stage      string
	Bucket     string
	Visibility string
	Sort       string // "score" (default) or "mrr"
}

// Startup is a listing with its score breakdown.
type Startup struct {
	StartupID  string `json:"startup_id"`
	Bucket     string `json:"bucket"`
	Visibility string `json:"visibility"`
	Identity   struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Summary  string `json:"summary"`
		Website  string `json:"website"`
	} `json:"identity"`
	Status struct {
		Stage  string `json:"stage"`
		Listed bool   `json:"listed"`
	} `json:"status"`
	Traction struct {
		MRRUSD           float64 `json:"mrr_usd"`
		Users            int64   `json:"users"`
		GrowthMoMPercent float64 `json:"growth_mom_percent"`
	} `json:"traction"`
	Deal struct {
		AskUSD float64 `json:"ask_usd"`
		Terms  string  `json:"terms"`
	} `json:"deal"`
	MetricsURL string `json:"metrics_url,omitempty"`
	Score      Score  `json:"score"`
}

// Score is the weighted breakdown computed by the server.
type Score struct {
	StageScore         float64 `json:"stage_score"`
	TractionScore      float64 `json:"traction_score"`
	OpsReadinessScore  float64 `json:"ops_readiness_score"`
	TechRiskScore      float64 `json:"tech_risk_score"`
	UnitEconomicsScore float64 `json:"unit_economics_score"`
	TotalScore         float64 `json:"total_score"`
}

// Validation is the validation record of one catalog entry.
type Validation struct {
	StartupID string   `json:"startup_id"`
	Path      string   `json:"path"`
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
}

// Metrics is the current metrics view of one startup.
type Metrics struct {
	StartupID    string          `json:"startup_id"`
	FetchedAt    time.Time       `json:"fetched_at"`
	Payload      json.RawMessage `json:"payload"`
	Source       string          `json:"source"`
	Cached       bool            `json:"cached"`
	Stale        bool            `json:"stale"`
	Fallback     bool            `json:"fallback,omitempty"`
	SourceStatus int             `json:"source_status,omitempty"`
}

// Offer is a buyer offer to submit.
type Offer struct {
	StartupID      string          `json:"startup_id"`
	BuyerName      string          `json:"buyer_name"`
	BuyerEmail     string          `json:"buyer_email"`
	OfferAmountUSD decimal.Decimal `json:"offer_amount_usd"`
	Message        string          `json:"message"`
}

// MarshalJSON encodes the amount as a JSON number.
func (o Offer) MarshalJSON() ([]byte, error) {
	type plain Offer
	return json.Marshal(struct {
		plain
		OfferAmountUSD json.Number `json:"offer_amount_usd"`
	}{plain(o), json.Number(o.OfferAmountUSD.String())})
}

// OfferReceipt acknowledges a stored offer.
type OfferReceipt struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	StartupID string    `json:"startup_id"`
	Replayed  bool      `json:"-"`
}

// SyncSummary is the outcome of a metrics sync run.
type SyncSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Results    []struct {
		StartupID      string     `json:"startup_id"`
		Success        bool       `json:"success"`
		FetchedAt      *time.Time `json:"fetched_at,omitempty"`
		UpstreamStatus int        `json:"upstream_status,omitempty"`
		Error          string     `json:"error,omitempty"`
	} `json:"results"`
}

// Health is the liveness response.
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// APIError is a problem+json response from the server.
type APIError struct {
	Status int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("startupshop: %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("startupshop: %d: %s", e.Status, e.Detail)
}
