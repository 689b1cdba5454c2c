package models

import (
	"fmt"
	"time"
)

// Coordinate is a WGS84 point in decimal degrees. It is the universal query
// key for every geospatial lookup and is never mutated after construction.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate is a plausible point in WGS84 space.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return &ValidationError{
			Field:   "latitude",
			Value:   fmt.Sprintf("%f", c.Latitude),
			Message: "latitude must be between -90 and 90",
		}
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return &ValidationError{
			Field:   "longitude",
			Value:   fmt.Sprintf("%f", c.Longitude),
			Message: "longitude must be between -180 and 180",
		}
	}
	return nil
}

// ProjectedCoordinate is the Web-Mercator (EPSG:3857) image of a
// Coordinate, in meters. Map front-ends consume it directly.
type ProjectedCoordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ZoneRecord is one zoning or prescription feature applying to a coordinate.
// Several records may overlap at the same point (zoning + prescriptions).
// NULL values represented as pointers, matching the source feature payloads
// where any property may be absent.
type ZoneRecord struct {
	ZoneCode     string  `json:"zone_code"`
	ZoneLabel    string  `json:"zone_label"`
	ZoneTypeTag  string  `json:"zone_type_tag"`
	InseeCode    string  `json:"insee_code"`
	PartitionID  *string `json:"partition_id,omitempty"`
	DocumentID   *string `json:"document_id,omitempty"`
	DocumentName *string `json:"document_name,omitempty"`
}

// The four records below share a tri-state contract:
//   - not in zone:       InZone false, classification fields nil, Caveat nil
//   - in zone, known:    InZone true, classification fields populated
//   - in zone, unknown:  InZone false, Caveat populated
// Collapsing "unknown" into "not in zone" loses the caveat and is a contract
// violation; every producer must keep the three states distinct.

// FloodZoneInfo describes PPRI / flood-risk-plan exposure at a point.
type FloodZoneInfo struct {
	InFloodZone bool    `json:"in_flood_zone"`
	ZoneType    *string `json:"zone_type,omitempty"`
	PlanName    *string `json:"plan_name,omitempty"`
	Caveat      *string `json:"caveat,omitempty"`
}

// HeritageProtectionInfo describes ABF protected-monument perimeters.
type HeritageProtectionInfo struct {
	InProtectedArea bool    `json:"in_protected_area"`
	MonumentName    *string `json:"monument_name,omitempty"`
	ProtectionType  *string `json:"protection_type,omitempty"`
	Caveat          *string `json:"caveat,omitempty"`
}

// NaturalRiskInfo carries seismic zoning and clay shrink-swell exposure.
type NaturalRiskInfo struct {
	InRiskZone    bool    `json:"in_risk_zone"`
	SeismicLevel  *int    `json:"seismic_level,omitempty"`
	ClayRiskLevel *string `json:"clay_risk_level,omitempty"`
	Caveat        *string `json:"caveat,omitempty"`
}

// NoiseExposureInfo describes PEB aircraft-noise zoning near airports.
type NoiseExposureInfo struct {
	InNoiseZone bool    `json:"in_noise_zone"`
	NoiseZone   *string `json:"noise_zone,omitempty"`
	AirportName *string `json:"airport_name,omitempty"`
	Caveat      *string `json:"caveat,omitempty"`
}

// FullLocationInfo aggregates everything known about a coordinate after one
// resolution pass. It is assembled per query and never persisted here;
// persistence belongs to the feasibility-analysis collaborator.
type FullLocationInfo struct {
	Coordinate   Coordinate             `json:"coordinate"`
	Projected    ProjectedCoordinate    `json:"projected"`
	PrimaryZone  *ZoneRecord            `json:"primary_zone,omitempty"`
	Zones        []ZoneRecord           `json:"zones"`
	Flood        FloodZoneInfo          `json:"flood"`
	Heritage     HeritageProtectionInfo `json:"heritage"`
	NaturalRisks NaturalRiskInfo        `json:"natural_risks"`
	Noise        NoiseExposureInfo      `json:"noise"`
	ResolvedAt   time.Time              `json:"resolved_at"`
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
