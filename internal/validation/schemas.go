package validation

import (
	"regexp"

	"github.com/hyperengineering/startupshop/internal/types"
)

// StartupIDPattern constrains listing identifiers to lowercase slugs.
var StartupIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func ptr(f float64) *float64 { return &f }

func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func str(minLength int) *Schema {
	return &Schema{Kind: KindString, MinLength: minLength}
}

func boolean() *Schema {
	return &Schema{Kind: KindBoolean}
}

func object(props ...Property) *Schema {
	return &Schema{Kind: KindObject, Properties: props}
}

func prop(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

// OfferSchema describes a buyer-submitted offer body.
var OfferSchema = object(
	prop("startup_id", str(1)),
	prop("buyer_name", str(2)),
	prop("buyer_email", &Schema{Kind: KindString, Format: FormatEmail}),
	prop("offer_amount_usd", &Schema{Kind: KindNumber, ExclusiveMinimum: ptr(0)}),
	prop("message", &Schema{Kind: KindString, MinLength: 5, MaxLength: 4000}),
)

// ListingSchema describes a startup listing document.
var ListingSchema = object(
	prop("startup_id", &Schema{Kind: KindString, MinLength: 1, Pattern: StartupIDPattern}),
	prop("bucket", &Schema{Kind: KindString, Enum: enumOf(types.Buckets)}),
	prop("visibility", &Schema{Kind: KindString, Enum: enumOf(types.Visibilities)}),
	prop("identity", object(
		prop("name", str(1)),
		prop("category", str(1)),
		prop("summary", str(1)),
		prop("website", &Schema{Kind: KindString, Format: FormatURI}),
	)),
	prop("status", object(
		prop("stage", &Schema{Kind: KindString, Enum: enumOf(types.Stages)}),
		prop("listed", boolean()),
	)),
	prop("traction", object(
		prop("mrr_usd", &Schema{Kind: KindNumber, Minimum: ptr(0)}),
		prop("users", &Schema{Kind: KindInteger, Minimum: ptr(0)}),
		prop("growth_mom_percent", &Schema{Kind: KindNumber}),
	)),
	prop("mvp", object(
		prop("live", boolean()),
		prop("notes", str(0)),
	)),
	prop("tech", object(
		prop("stack", &Schema{Kind: KindArray, Items: str(1)}),
		prop("risk_level", &Schema{Kind: KindString, Enum: []string{
			string(types.RiskLow), string(types.RiskMedium), string(types.RiskHigh),
		}}),
	)),
	prop("ops", object(
		prop("automation_level", &Schema{Kind: KindString, Enum: []string{
			string(types.AutomationManual), string(types.AutomationSemiAutomated), string(types.AutomationAutomated),
		}}),
		prop("owner_handoff_ready", boolean()),
	)),
	prop("deal", object(
		prop("ask_usd", &Schema{Kind: KindNumber, Minimum: ptr(0)}),
		prop("terms", str(0)),
	)),
	prop("risks", &Schema{Kind: KindArray, Items: str(1)}),
	prop("metadata", object(
		prop("created_at", &Schema{Kind: KindString, Format: FormatTimestamp}),
		prop("updated_at", &Schema{Kind: KindString, Format: FormatTimestamp}),
	)),
	Property{Name: "metrics_url", Schema: &Schema{Kind: KindString, Format: FormatURI}, Optional: true},
)
