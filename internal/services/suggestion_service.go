package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"urbanisme-platform/internal/models"
	"urbanisme-platform/pkg/logging"
)

// Suggestion engine constants. These cut points are behavioral contracts:
// suggestion wording and downstream consumers depend on the exact values,
// so they are not tunable configuration.
const (
	// maxOvershootRatio is the ceiling above which a reduction is no
	// longer a "minor adjustment" and no suggestion is emitted.
	maxOvershootRatio = 0.25
	// lowImpactRatio and mediumImpactRatio split the required reduction
	// into impact tiers.
	lowImpactRatio    = 0.10
	mediumImpactRatio = 0.20
	// maxSuggestions caps the emitted list.
	maxSuggestions = 3
)

// authorizationThresholds is the static threshold table. Surface thresholds
// follow the code de l'urbanisme cut points for déclaration préalable and
// permis de construire.
var authorizationThresholds = []models.ThresholdRule{
	{
		ProjectType: models.ProjectExtension,
		FieldID:     "extension_surface_plancher",
		Unit:        "m²",
		Direction:   "max",
		Category:    "surface",
		Thresholds: []models.ThresholdBand{
			{Value: 40, BelowAuthorization: models.AuthorizationDP, AtOrAboveAuthorization: models.AuthorizationPC, ZoneCondition: "U"},
			{Value: 20, BelowAuthorization: models.AuthorizationDP, AtOrAboveAuthorization: models.AuthorizationPC, ZoneCondition: "OTHER"},
		},
	},
	{
		ProjectType: models.ProjectExtension,
		FieldID:     "extension_hauteur",
		Unit:        "m",
		Direction:   "max",
		Category:    "hauteur",
		Thresholds: []models.ThresholdBand{
			{Value: 12, BelowAuthorization: models.AuthorizationDP, AtOrAboveAuthorization: models.AuthorizationPC},
		},
	},
	{
		ProjectType: models.ProjectPool,
		FieldID:     "piscine_surface_bassin",
		Unit:        "m²",
		Direction:   "max",
		Category:    "surface",
		Thresholds: []models.ThresholdBand{
			{Value: 10, BelowAuthorization: models.AuthorizationNone, AtOrAboveAuthorization: models.AuthorizationDP},
			{Value: 100, BelowAuthorization: models.AuthorizationDP, AtOrAboveAuthorization: models.AuthorizationPC},
		},
	},
	{
		ProjectType: models.ProjectPool,
		FieldID:     "piscine_hauteur_abri",
		Unit:        "m",
		Direction:   "max",
		Category:    "hauteur",
		Thresholds: []models.ThresholdBand{
			{Value: 1.8, BelowAuthorization: models.AuthorizationDP, AtOrAboveAuthorization: models.AuthorizationPC},
		},
	},
	{
		ProjectType: models.ProjectGardenShed,
		FieldID:     "annexe_emprise_sol",
		Unit:        "m²",
		Direction:   "max",
		Category:    "surface",
		Thresholds: []models.ThresholdBand{
			{Value: 5, BelowAuthorization: models.AuthorizationNone, AtOrAboveAuthorization: models.AuthorizationDP},
			{Value: 20, BelowAuthorization: models.AuthorizationDP, AtOrAboveAuthorization: models.AuthorizationPC},
		},
	},
	{
		ProjectType: models.ProjectCarport,
		FieldID:     "carport_emprise_sol",
		Unit:        "m²",
		Direction:   "max",
		Category:    "surface",
		Thresholds: []models.ThresholdBand{
			{Value: 20, BelowAuthorization: models.AuthorizationDP, AtOrAboveAuthorization: models.AuthorizationPC},
		},
	},
}

// suggestionTemplates phrases the authorization improvement per project
// type, keyed "from>to".
var suggestionTemplates = map[string]map[string]string{
	models.ProjectPool: {
		"PC>DP":   "En ramenant la surface de bassin à %.0f %s, votre piscine passe d'un permis de construire à une simple déclaration préalable.",
		"DP>none": "En ramenant la valeur à %.0f %s, votre piscine ne nécessite plus aucune formalité.",
	},
	models.ProjectExtension: {
		"PC>DP":   "En limitant votre extension à %.0f %s, une déclaration préalable suffit au lieu d'un permis de construire.",
		"PC>none": "En limitant votre extension à %.0f %s, aucune autorisation n'est requise.",
	},
	models.ProjectGardenShed: {
		"DP>none": "En limitant l'emprise au sol à %.0f %s, votre abri de jardin est dispensé de toute formalité.",
		"PC>DP":   "En limitant l'emprise au sol à %.0f %s, une déclaration préalable suffit.",
	},
}

// genericTemplate covers improvement pairs without a dedicated phrasing.
const genericTemplate = "En ramenant la valeur à %.0f %s, vous simplifiez vos démarches administratives."

// SuggestionInput carries everything the engine needs. Gating (only asking
// when the project is at the most restrictive tier or flagged risky) is the
// caller's responsibility.
type SuggestionInput struct {
	ProjectType          string             `json:"project_type"`
	ZoneCode             string             `json:"zone_code"`
	CurrentAuthorization string             `json:"current_authorization"`
	FeasibilityStatus    string             `json:"feasibility_status"`
	Responses            map[string]float64 `json:"responses"`
}

// SuggestionService derives ranked what-if adjustments from questionnaire
// values and the static threshold table. Pure computation; no I/O.
type SuggestionService struct {
	logger *logging.StructuredLogger
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(logger *logging.StructuredLogger) *SuggestionService {
	return &SuggestionService{logger: logger}
}

// Suggest returns at most maxSuggestions adjustments, sorted by ascending
// impact tier.
func (s *SuggestionService) Suggest(ctx context.Context, input SuggestionInput) []models.AdjustmentSuggestion {
	suggestions := make([]models.AdjustmentSuggestion, 0, maxSuggestions)

	for _, rule := range authorizationThresholds {
		if rule.ProjectType != input.ProjectType {
			continue
		}
		value, ok := input.Responses[rule.FieldID]
		if !ok || value <= 0 {
			continue
		}

		// Only values strictly above a threshold, by at most 25%, are
		// worth proposing; larger gaps are no longer minor adjustments.
		band := selectBand(rule.Thresholds, input.ZoneCode, value)
		if band == nil {
			continue
		}
		overshoot := (value - band.Value) / band.Value
		if overshoot > maxOvershootRatio {
			continue
		}

		reduction := (value - band.Value) / value
		suggestion := models.AdjustmentSuggestion{
			TargetField:            rule.FieldID,
			CurrentValue:           value,
			SuggestedValue:         band.Value,
			ThresholdValue:         band.Value,
			Unit:                   rule.Unit,
			CurrentAuthorization:   band.AtOrAboveAuthorization,
			ResultingAuthorization: band.BelowAuthorization,
			ImpactTier:             impactTier(reduction),
			Category:               rule.Category,
		}
		suggestion.Description = describe(input.ProjectType, &suggestion)
		suggestions = append(suggestions, suggestion)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return models.ImpactRank(suggestions[i].ImpactTier) < models.ImpactRank(suggestions[j].ImpactTier)
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	s.logger.Debug(ctx, "[SUGGEST_DONE] Suggestions computed", logging.Fields{
		"project_type": input.ProjectType,
		"zone_code":    input.ZoneCode,
		"count":        len(suggestions),
	})
	return suggestions
}

// selectBand picks the threshold band the value just crossed: among the
// bands matching the zone condition ("U" for urban-prefixed zone codes,
// "OTHER" for the rest, empty for unconditional), the highest threshold
// strictly below the value.
func selectBand(bands []models.ThresholdBand, zoneCode string, value float64) *models.ThresholdBand {
	urban := strings.HasPrefix(strings.ToUpper(zoneCode), "U")
	var best *models.ThresholdBand
	for i := range bands {
		switch bands[i].ZoneCondition {
		case "U":
			if !urban {
				continue
			}
		case "OTHER":
			if urban {
				continue
			}
		}
		if bands[i].Value < value && (best == nil || bands[i].Value > best.Value) {
			best = &bands[i]
		}
	}
	return best
}

// impactTier classifies the relative reduction needed to reach the
// threshold.
func impactTier(reduction float64) string {
	reduction = math.Abs(reduction)
	switch {
	case reduction <= lowImpactRatio:
		return models.ImpactLow
	case reduction <= mediumImpactRatio:
		return models.ImpactMedium
	default:
		return models.ImpactHigh
	}
}

// describe renders the human phrasing for a suggestion, falling back to the
// generic template for unmatched improvement pairs.
func describe(projectType string, s *models.AdjustmentSuggestion) string {
	key := s.CurrentAuthorization + ">" + s.ResultingAuthorization
	if templates, ok := suggestionTemplates[projectType]; ok {
		if tpl, ok := templates[key]; ok {
			return fmt.Sprintf(tpl, s.SuggestedValue, s.Unit)
		}
	}
	return fmt.Sprintf(genericTemplate, s.SuggestedValue, s.Unit)
}
