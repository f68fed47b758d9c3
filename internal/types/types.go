package types

// Stage is the lifecycle stage of a startup.
type Stage string

const (
	StageIdea         Stage = "idea"
	StageMVP          Stage = "mvp"
	StageEarlyRevenue Stage = "early-revenue"
	StageGrowth       Stage = "growth"
	StageMature       Stage = "mature"
)

// Stages lists every valid stage in lifecycle order.
var Stages = []Stage{StageIdea, StageMVP, StageEarlyRevenue, StageGrowth, StageMature}

// Bucket is the portfolio lifecycle grouping of a listing.
type Bucket string

const (
	BucketCurrent  Bucket = "current"
	BucketFuture   Bucket = "future"
	BucketArchived Bucket = "archived"
)

// Buckets lists every valid bucket.
var Buckets = []Bucket{BucketCurrent, BucketFuture, BucketArchived}

// Visibility restricts which audience may see a listing.
type Visibility string

const (
	VisibilityInternal Visibility = "internal"
	VisibilityInvestor Visibility = "investor"
)

// Visibilities lists every valid visibility.
var Visibilities = []Visibility{VisibilityInternal, VisibilityInvestor}

// RiskLevel is the technical risk classification of a listing.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// AutomationLevel describes how much of the operation runs without the owner.
type AutomationLevel string

const (
	AutomationManual        AutomationLevel = "manual"
	AutomationSemiAutomated AutomationLevel = "semi-automated"
	AutomationAutomated     AutomationLevel = "automated"
)

// StartupListing is a startup record available for showcase or acquisition.
// Listings are read-only input loaded from the catalog documents.
type StartupListing struct {
	StartupID  string     `json:"startup_id" yaml:"startup_id"`
	Bucket     Bucket     `json:"bucket" yaml:"bucket"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
	Identity   Identity   `json:"identity" yaml:"identity"`
	Status     Status     `json:"status" yaml:"status"`
	Traction   Traction   `json:"traction" yaml:"traction"`
	MVP        MVP        `json:"mvp" yaml:"mvp"`
	Tech       Tech       `json:"tech" yaml:"tech"`
	Ops        Ops        `json:"ops" yaml:"ops"`
	Deal       Deal       `json:"deal" yaml:"deal"`
	Risks      []string   `json:"risks" yaml:"risks"`
	Metadata   Metadata   `json:"metadata" yaml:"metadata"`
	MetricsURL string     `json:"metrics_url,omitempty" yaml:"metrics_url,omitempty"`
}

// Identity holds the public-facing descriptors of a startup.
type Identity struct {
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	Summary  string `json:"summary" yaml:"summary"`
	Website  string `json:"website" yaml:"website"`
}

// Status holds lifecycle state.
type Status struct {
	Stage  Stage `json:"stage" yaml:"stage"`
	Listed bool  `json:"listed" yaml:"listed"`
}

// Traction holds revenue and usage figures.
type Traction struct {
	MRRUSD           float64 `json:"mrr_usd" yaml:"mrr_usd"`
	Users            int64   `json:"users" yaml:"users"`
	GrowthMoMPercent float64 `json:"growth_mom_percent" yaml:"growth_mom_percent"`
}

// MVP describes product readiness.
type MVP struct {
	Live  bool   `json:"live" yaml:"live"`
	Notes string `json:"notes" yaml:"notes"`
}

// Tech describes the technology stack and its risk.
type Tech struct {
	Stack     []string  `json:"stack" yaml:"stack"`
	RiskLevel RiskLevel `json:"risk_level" yaml:"risk_level"`
}

// Ops describes operational readiness for a handoff.
type Ops struct {
	AutomationLevel   AutomationLevel `json:"automation_level" yaml:"automation_level"`
	OwnerHandoffReady bool            `json:"owner_handoff_ready" yaml:"owner_handoff_ready"`
}

// Deal holds the asking price and terms.
type Deal struct {
	AskUSD float64 `json:"ask_usd" yaml:"ask_usd"`
	Terms  string  `json:"terms" yaml:"terms"`
}

// Metadata holds document bookkeeping timestamps as written in the source document.
type Metadata struct {
	CreatedAt string `json:"created_at" yaml:"created_at"`
	UpdatedAt string `json:"updated_at" yaml:"updated_at"`
}

// IndexEntry maps a startup ID to the document that describes it.
type IndexEntry struct {
	StartupID string `yaml:"startup_id"`
	Path      string `yaml:"path"`
}

// ListingValidation is the validation outcome of one index entry.
type ListingValidation struct {
	StartupID string   `json:"startup_id"`
	Path      string   `json:"path"`
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// ReadyCheck is the outcome of a single readiness probe.
type ReadyCheck struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// ReadyStatus aggregates readiness probes.
type ReadyStatus struct {
	Ready     bool                  `json:"ready"`
	Checks    map[string]ReadyCheck `json:"checks"`
	Timestamp string                `json:"timestamp"`
}
