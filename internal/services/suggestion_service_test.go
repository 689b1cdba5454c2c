package services

import (
	"context"
	"strings"
	"testing"

	"urbanisme-platform/internal/models"
)

func TestSuggestionService_Suggest(t *testing.T) {
	svc := NewSuggestionService(newTestLogger())
	ctx := context.Background()

	tests := []struct {
		name        string
		input       SuggestionInput
		wantCount   int
		checkValues func(*testing.T, []models.AdjustmentSuggestion)
	}{
		{
			name: "extension slightly over the urban-zone threshold",
			input: SuggestionInput{
				ProjectType: models.ProjectExtension,
				ZoneCode:    "UB",
				Responses:   map[string]float64{"extension_surface_plancher": 45},
			},
			wantCount: 1,
			checkValues: func(t *testing.T, got []models.AdjustmentSuggestion) {
				s := got[0]
				if s.SuggestedValue != 40 {
					t.Errorf("SuggestedValue = %v, want 40", s.SuggestedValue)
				}
				if s.CurrentAuthorization != models.AuthorizationPC {
					t.Errorf("CurrentAuthorization = %v, want PC", s.CurrentAuthorization)
				}
				if s.ResultingAuthorization != models.AuthorizationDP {
					t.Errorf("ResultingAuthorization = %v, want DP", s.ResultingAuthorization)
				}
				// 5 of 45 is an 11.1% reduction.
				if s.ImpactTier != models.ImpactMedium {
					t.Errorf("ImpactTier = %v, want medium", s.ImpactTier)
				}
			},
		},
		{
			name: "extension too far over the threshold",
			input: SuggestionInput{
				ProjectType: models.ProjectExtension,
				ZoneCode:    "UB",
				Responses:   map[string]float64{"extension_surface_plancher": 55},
			},
			wantCount: 0,
		},
		{
			name: "non-urban zone uses the lower threshold",
			input: SuggestionInput{
				ProjectType: models.ProjectExtension,
				ZoneCode:    "N",
				Responses:   map[string]float64{"extension_surface_plancher": 22},
			},
			wantCount: 1,
			checkValues: func(t *testing.T, got []models.AdjustmentSuggestion) {
				if got[0].SuggestedValue != 20 {
					t.Errorf("SuggestedValue = %v, want 20", got[0].SuggestedValue)
				}
				// 2 of 22 is a 9.1% reduction.
				if got[0].ImpactTier != models.ImpactLow {
					t.Errorf("ImpactTier = %v, want low", got[0].ImpactTier)
				}
			},
		},
		{
			name: "value exactly at the threshold emits nothing",
			input: SuggestionInput{
				ProjectType: models.ProjectExtension,
				ZoneCode:    "UB",
				Responses:   map[string]float64{"extension_surface_plancher": 40},
			},
			wantCount: 0,
		},
		{
			name: "pool crosses the upper band, not the lower",
			input: SuggestionInput{
				ProjectType: models.ProjectPool,
				ZoneCode:    "UB",
				Responses:   map[string]float64{"piscine_surface_bassin": 110},
			},
			wantCount: 1,
			checkValues: func(t *testing.T, got []models.AdjustmentSuggestion) {
				if got[0].SuggestedValue != 100 {
					t.Errorf("SuggestedValue = %v, want 100", got[0].SuggestedValue)
				}
				if got[0].ResultingAuthorization != models.AuthorizationDP {
					t.Errorf("ResultingAuthorization = %v, want DP", got[0].ResultingAuthorization)
				}
			},
		},
		{
			name: "small pool just over the no-formality band",
			input: SuggestionInput{
				ProjectType: models.ProjectPool,
				ZoneCode:    "AU",
				Responses:   map[string]float64{"piscine_surface_bassin": 12},
			},
			wantCount: 1,
			checkValues: func(t *testing.T, got []models.AdjustmentSuggestion) {
				if got[0].SuggestedValue != 10 {
					t.Errorf("SuggestedValue = %v, want 10", got[0].SuggestedValue)
				}
				if got[0].ResultingAuthorization != models.AuthorizationNone {
					t.Errorf("ResultingAuthorization = %v, want none", got[0].ResultingAuthorization)
				}
			},
		},
		{
			name: "unknown project type",
			input: SuggestionInput{
				ProjectType: "veranda",
				ZoneCode:    "UB",
				Responses:   map[string]float64{"extension_surface_plancher": 45},
			},
			wantCount: 0,
		},
		{
			name: "missing response value",
			input: SuggestionInput{
				ProjectType: models.ProjectExtension,
				ZoneCode:    "UB",
				Responses:   map[string]float64{},
			},
			wantCount: 0,
		},
		{
			name: "multiple fields sorted by impact",
			input: SuggestionInput{
				ProjectType: models.ProjectExtension,
				ZoneCode:    "UB",
				Responses: map[string]float64{
					"extension_surface_plancher": 45, // 11.1% reduction, medium
					"extension_hauteur":          12.5, // 4% reduction, low
				},
			},
			wantCount: 2,
			checkValues: func(t *testing.T, got []models.AdjustmentSuggestion) {
				if got[0].ImpactTier != models.ImpactLow {
					t.Errorf("first suggestion tier = %v, want low", got[0].ImpactTier)
				}
				if got[1].ImpactTier != models.ImpactMedium {
					t.Errorf("second suggestion tier = %v, want medium", got[1].ImpactTier)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Suggest(ctx, tt.input)
			if len(got) != tt.wantCount {
				t.Fatalf("Suggest() returned %d suggestions, want %d: %+v", len(got), tt.wantCount, got)
			}
			if tt.checkValues != nil {
				tt.checkValues(t, got)
			}
		})
	}
}

func TestSuggestionService_Descriptions(t *testing.T) {
	svc := NewSuggestionService(newTestLogger())

	got := svc.Suggest(context.Background(), SuggestionInput{
		ProjectType: models.ProjectExtension,
		ZoneCode:    "UB",
		Responses:   map[string]float64{"extension_surface_plancher": 45},
	})
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(got))
	}
	if !strings.Contains(got[0].Description, "40") {
		t.Errorf("description should mention the target value: %q", got[0].Description)
	}
	if !strings.Contains(got[0].Description, "déclaration préalable") {
		t.Errorf("description should name the resulting formality: %q", got[0].Description)
	}
}
