package models

import (
	"time"
)

// RuleSet holds the numeric regulations extracted from a zoning-plan
// règlement for one (insee_code, zone_code) pair. Every leaf is a pointer:
// nil means "not found in the source text", never zero.
type RuleSet struct {
	// General rules applying to all construction in the zone.
	SetbackBoundaryM  *float64 `json:"setback_boundary_m,omitempty"`
	SetbackPublicWayM *float64 `json:"setback_public_way_m,omitempty"`
	MaxHeightM        *float64 `json:"max_height_m,omitempty"`
	MaxFootprintRatio *float64 `json:"max_footprint_ratio,omitempty"`
	BiotopeRequired   *bool    `json:"biotope_required,omitempty"`

	// Pool-specific overrides. A règlement frequently states a general
	// setback immediately followed by a narrower exception for pools;
	// both must survive extraction side by side.
	Pool *PoolRules `json:"pool,omitempty"`
}

// PoolRules is the project-type override block for swimming pools.
type PoolRules struct {
	MinNeighborSetbackM *float64 `json:"min_neighbor_setback_m,omitempty"`
	BiotopeRequired     *bool    `json:"biotope_required,omitempty"`
	Citation            *string  `json:"citation,omitempty"`
}

// HasUsableSignal reports whether the rule set carries at least one concrete
// value. An all-nil shell must never count as a cache hit: a failed
// extraction stored as {} would otherwise poison the cache for its whole
// lifetime.
func (r *RuleSet) HasUsableSignal() bool {
	if r == nil {
		return false
	}
	if r.SetbackBoundaryM != nil || r.SetbackPublicWayM != nil ||
		r.MaxHeightM != nil || r.MaxFootprintRatio != nil || r.BiotopeRequired != nil {
		return true
	}
	if r.Pool != nil && (r.Pool.MinNeighborSetbackM != nil || r.Pool.BiotopeRequired != nil) {
		return true
	}
	return false
}

// DocumentHandle points at the written regulation of a planning document
// once the resolver has located it in the registry.
type DocumentHandle struct {
	DocumentID         string  `json:"document_id"`
	Name               string  `json:"name"`
	DocumentType       *string `json:"document_type,omitempty"`
	ApprovalDate       *string `json:"approval_date,omitempty"`
	RegulationURL      string  `json:"regulation_url"`
	WrittenPartCount   int     `json:"written_part_count"`
	GraphicalPartCount int     `json:"graphical_part_count"`
	AnnexCount         int     `json:"annex_count"`
}

// RuleCacheEntry is the persisted form of an extracted RuleSet together with
// its provenance. Entries expire and are re-extracted; they are never
// invalidated by hand.
type RuleCacheEntry struct {
	InseeCode    string    `db:"insee_code" json:"insee_code"`
	ZoneCode     string    `db:"zone_code" json:"zone_code"`
	Rules        RuleSet   `db:"-" json:"rules"`
	SourceURL    string    `db:"source_url" json:"source_url"`
	DocumentID   *string   `db:"document_id" json:"document_id,omitempty"`
	DocumentName *string   `db:"document_name" json:"document_name,omitempty"`
	DocumentType *string   `db:"document_type" json:"document_type,omitempty"`
	DocumentDate *string   `db:"document_date" json:"document_date,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
}

// IsExpired reports whether the entry is past its expiration at the given
// instant. Expired entries are treated as misses, never as errors.
func (e *RuleCacheEntry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
