package models

import (
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// TestRuleSet_HasUsableSignal tests the cache-hit predicate
func TestRuleSet_HasUsableSignal(t *testing.T) {
	tests := []struct {
		name string
		rule *RuleSet
		want bool
	}{
		{
			name: "nil rule set",
			rule: nil,
			want: false,
		},
		{
			name: "all-nil shell",
			rule: &RuleSet{},
			want: false,
		},
		{
			name: "shell with empty pool block",
			rule: &RuleSet{Pool: &PoolRules{}},
			want: false,
		},
		{
			name: "pool block with only a citation",
			rule: &RuleSet{Pool: &PoolRules{Citation: strPtr("article UB7")}},
			want: false,
		},
		{
			name: "single general value",
			rule: &RuleSet{SetbackBoundaryM: floatPtr(3)},
			want: true,
		},
		{
			name: "single boolean value",
			rule: &RuleSet{BiotopeRequired: boolPtr(false)},
			want: true,
		},
		{
			name: "pool-only value",
			rule: &RuleSet{Pool: &PoolRules{MinNeighborSetbackM: floatPtr(2)}},
			want: true,
		},
		{
			name: "general rule and pool exception side by side",
			rule: &RuleSet{
				SetbackBoundaryM: floatPtr(4),
				Pool:             &PoolRules{MinNeighborSetbackM: floatPtr(2)},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.HasUsableSignal(); got != tt.want {
				t.Errorf("HasUsableSignal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

// TestRuleCacheEntry_IsExpired tests expiration boundary behavior
func TestRuleCacheEntry_IsExpired(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &RuleCacheEntry{ExpiresAt: expiry}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before expiration", expiry.Add(-time.Hour), false},
		{"exactly at expiration", expiry, true},
		{"after expiration", expiry.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.IsExpired(tt.now); got != tt.want {
				t.Errorf("IsExpired(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

// TestCoordinate_Validate tests WGS84 bounds checking
func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"valid metropolitan point", Coordinate{Latitude: 43.6, Longitude: 1.44}, false},
		{"valid negative longitude", Coordinate{Latitude: 48.39, Longitude: -4.49}, false},
		{"latitude too high", Coordinate{Latitude: 91, Longitude: 0}, true},
		{"latitude too low", Coordinate{Latitude: -91, Longitude: 0}, true},
		{"longitude too high", Coordinate{Latitude: 0, Longitude: 181}, true},
		{"longitude too low", Coordinate{Latitude: 0, Longitude: -181}, true},
		{"boundary values", Coordinate{Latitude: 90, Longitude: -180}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
