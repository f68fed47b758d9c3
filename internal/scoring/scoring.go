// Package scoring ranks startup listings with a deterministic weighted score.
package scoring

import (
	"math/big"
	"strconv"

	"github.com/hyperengineering/startupshop/internal/types"
)

// Breakdown holds the component scores and the weighted total, each in [0,100].
type Breakdown struct {
	StageScore         float64 `json:"stage_score"`
	TractionScore      float64 `json:"traction_score"`
	OpsReadinessScore  float64 `json:"ops_readiness_score"`
	TechRiskScore      float64 `json:"tech_risk_score"`
	UnitEconomicsScore float64 `json:"unit_economics_score"`
	TotalScore         float64 `json:"total_score"`
}

// Component weights of the total score.
const (
	wStage         = 0.2
	wTraction      = 0.3
	wOpsReadiness  = 0.15
	wTechRisk      = 0.15
	wUnitEconomics = 0.2
)

var stageBaseline = map[types.Stage]float64{
	types.StageIdea:         20,
	types.StageMVP:          40,
	types.StageEarlyRevenue: 60,
	types.StageGrowth:       80,
	types.StageMature:       95,
}

var automationScore = map[types.AutomationLevel]float64{
	types.AutomationManual:        35,
	types.AutomationSemiAutomated: 65,
	types.AutomationAutomated:     90,
}

var techRiskScore = map[types.RiskLevel]float64{
	types.RiskLow:    90,
	types.RiskMedium: 65,
	types.RiskHigh:   35,
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func scoreTraction(t types.Traction) float64 {
	mrr := clamp(t.MRRUSD / 20000 * 60)
	users := clamp(float64(t.Users) / 1000 * 20)
	growth := clamp((t.GrowthMoMPercent + 10) / 40 * 20)
	return clamp(mrr + users + growth)
}

func scoreOpsReadiness(o types.Ops) float64 {
	score := automationScore[o.AutomationLevel]
	if o.OwnerHandoffReady {
		score += 10
	}
	return clamp(score)
}

func scoreUnitEconomics(l *types.StartupListing) float64 {
	if l.Traction.MRRUSD <= 0 {
		return 0
	}

	askMultiple := l.Deal.AskUSD / (l.Traction.MRRUSD * 12)
	switch {
	case askMultiple <= 2:
		return 90
	case askMultiple <= 4:
		return 75
	case askMultiple <= 6:
		return 60
	case askMultiple <= 8:
		return 45
	default:
		return 30
	}
}

// ComputeScore scores a listing. It is pure and total: enum values outside
// the known sets score 0 for their component.
func ComputeScore(l *types.StartupListing) Breakdown {
	b := Breakdown{
		StageScore:         stageBaseline[l.Status.Stage],
		TractionScore:      scoreTraction(l.Traction),
		OpsReadinessScore:  scoreOpsReadiness(l.Ops),
		TechRiskScore:      techRiskScore[l.Tech.RiskLevel],
		UnitEconomicsScore: scoreUnitEconomics(l),
	}

	// Explicit conversions keep each product rounded so the sum is never fused.
	total := float64(b.StageScore*wStage) +
		float64(b.TractionScore*wTraction) +
		float64(b.OpsReadinessScore*wOpsReadiness) +
		float64(b.TechRiskScore*wTechRisk) +
		float64(b.UnitEconomicsScore*wUnitEconomics)

	b.TotalScore = round2(clamp(total))
	return b
}

// Scored pairs a listing with its score breakdown.
type Scored struct {
	Listing types.StartupListing
	Score   Breakdown
}

// ScoreAll scores every listing, preserving order.
func ScoreAll(listings []types.StartupListing) []Scored {
	out := make([]Scored, len(listings))
	for i := range listings {
		out[i] = Scored{Listing: listings[i], Score: ComputeScore(&listings[i])}
	}
	return out
}

// round2 rounds a non-negative value to two decimals, half up, on its exact
// binary value.
func round2(v float64) float64 {
	exact := new(big.Float).SetPrec(256).SetFloat64(v)
	exact.Mul(exact, new(big.Float).SetPrec(256).SetFloat64(100))
	exact.Add(exact, big.NewFloat(0.5))
	n, _ := exact.Int(nil)
	f, err := strconv.ParseFloat(n.String()+"e-2", 64)
	if err != nil {
		return v
	}
	return f
}
