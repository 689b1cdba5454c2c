package models

// Authorization tiers, from least to most regulatory scrutiny.
const (
	AuthorizationNone = "none" // no formality required
	AuthorizationDP   = "DP"   // déclaration préalable
	AuthorizationPC   = "PC"   // permis de construire
	AuthorizationPA   = "PA"   // permis d'aménager
)

// Project types understood by the suggestion engine.
const (
	ProjectPool       = "piscine"
	ProjectExtension  = "extension"
	ProjectGardenShed = "abri_jardin"
	ProjectCarport    = "carport"
)

// Impact tiers for adjustment suggestions, ordered by how much of the
// project the respondent would have to give up.
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// ImpactRank maps a tier to its sort order (low sorts first).
func ImpactRank(tier string) int {
	switch tier {
	case ImpactLow:
		return 0
	case ImpactMedium:
		return 1
	default:
		return 2
	}
}

// ThresholdBand is one authorization cut point inside a ThresholdRule. A
// respondent value strictly below Value requires BelowAuthorization; at or
// above it requires AtOrAboveAuthorization. ZoneCondition selects the band:
// "U" for urban-prefixed zone codes, "OTHER" for the rest, empty for
// unconditional bands.
type ThresholdBand struct {
	Value                  float64 `json:"value"`
	BelowAuthorization     string  `json:"below_authorization"`
	AtOrAboveAuthorization string  `json:"at_or_above_authorization"`
	ZoneCondition          string  `json:"zone_condition,omitempty"`
}

// ThresholdRule maps one questionnaire field of one project type to its
// authorization thresholds. The table of rules is static configuration and
// is never mutated at runtime.
type ThresholdRule struct {
	ProjectType string          `json:"project_type"`
	FieldID     string          `json:"field_id"`
	Unit        string          `json:"unit"`
	Direction   string          `json:"direction"`
	Category    string          `json:"category"`
	Thresholds  []ThresholdBand `json:"thresholds"`
}

// AdjustmentSuggestion proposes lowering one questionnaire value to a
// threshold so the project drops to a lighter authorization tier. Derived
// output; owned by the analysis result that requested it, never persisted
// on its own.
type AdjustmentSuggestion struct {
	TargetField            string  `json:"target_field"`
	CurrentValue           float64 `json:"current_value"`
	SuggestedValue         float64 `json:"suggested_value"`
	ThresholdValue         float64 `json:"threshold_value"`
	Unit                   string  `json:"unit"`
	CurrentAuthorization   string  `json:"current_authorization"`
	ResultingAuthorization string  `json:"resulting_authorization"`
	ImpactTier             string  `json:"impact_tier"`
	Category               string  `json:"category"`
	Description            string  `json:"description"`
}
