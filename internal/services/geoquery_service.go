package services

import (
	"context"
	"sync"
	"time"

	"urbanisme-platform/internal/models"
	"urbanisme-platform/pkg/geoproj"
	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/metrics"
)

// ZoningSource provides the geometry-bearing GPU lookups for a point.
type ZoningSource interface {
	ZonesAtPoint(ctx context.Context, c models.Coordinate) ([]models.ZoneRecord, error)
	CommuneSectorsAtPoint(ctx context.Context, c models.Coordinate) ([]models.ZoneRecord, error)
	SurfacePrescriptionsAtPoint(ctx context.Context, c models.Coordinate) ([]models.ZoneRecord, error)
	LinearPrescriptionsAtPoint(ctx context.Context, c models.Coordinate) ([]models.ZoneRecord, error)
}

// RiskSource provides the risk, heritage and noise lookups for a point.
type RiskSource interface {
	FloodZoneAtPoint(ctx context.Context, c models.Coordinate) (models.FloodZoneInfo, error)
	NaturalRisksAtPoint(ctx context.Context, c models.Coordinate) (models.NaturalRiskInfo, error)
	HeritageAtPoint(ctx context.Context, c models.Coordinate) (models.HeritageProtectionInfo, error)
	NoiseExposureAtPoint(ctx context.Context, c models.Coordinate) (models.NoiseExposureInfo, error)
}

// PartitionNamer resolves a partition id to a document name, or nil.
type PartitionNamer interface {
	NameFor(ctx context.Context, partitionID string) *string
}

// GeoQueryService fans out to the independent geospatial sources for a
// coordinate and merges their answers into one FullLocationInfo. A failing
// source is logged and replaced by its neutral value; the aggregate never
// fails as a whole.
type GeoQueryService struct {
	zoning  ZoningSource
	risks   RiskSource
	namer   PartitionNamer
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	timeout time.Duration
}

// NewGeoQueryService creates a new geoquery coordinator
func NewGeoQueryService(zoning ZoningSource, risks RiskSource, namer PartitionNamer, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, timeout time.Duration) *GeoQueryService {
	return &GeoQueryService{
		zoning:  zoning,
		risks:   risks,
		namer:   namer,
		logger:  logger,
		metrics: metricsCollector,
		timeout: timeout,
	}
}

// geoResults collects the settled answers of the fan-out. Each field is
// written by exactly one goroutine before the WaitGroup releases.
type geoResults struct {
	zones        []models.ZoneRecord
	sectors      []models.ZoneRecord
	surfacePresc []models.ZoneRecord
	linearPresc  []models.ZoneRecord
	flood        models.FloodZoneInfo
	naturalRisks models.NaturalRiskInfo
	heritage     models.HeritageProtectionInfo
	noise        models.NoiseExposureInfo
}

// Resolve queries all sources concurrently and composes a best-effort
// FullLocationInfo. It returns within the per-source timeout envelope and
// never returns an error: the worst case is an all-neutral result.
func (s *GeoQueryService) Resolve(ctx context.Context, coordinate models.Coordinate) *models.FullLocationInfo {
	results := &geoResults{}
	var wg sync.WaitGroup

	run := func(source string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			start := time.Now()
			err := fn(queryCtx)
			duration := time.Since(start)

			if err != nil {
				s.metrics.RecordGeoSourceRequest(source, "error", duration)
				s.metrics.RecordGeoSourceError(source)
				s.logger.Warn(ctx, "[GEOQUERY_SOURCE_ERROR] Source failed, using neutral fallback", logging.Fields{
					"source":    source,
					"latitude":  coordinate.Latitude,
					"longitude": coordinate.Longitude,
					"error":     err.Error(),
				})
				return
			}
			s.metrics.RecordGeoSourceRequest(source, "ok", duration)
		}()
	}

	run("zone_urba", func(ctx context.Context) error {
		zones, err := s.zoning.ZonesAtPoint(ctx, coordinate)
		if err != nil {
			return err
		}
		results.zones = zones
		return nil
	})
	run("secteur_cc", func(ctx context.Context) error {
		sectors, err := s.zoning.CommuneSectorsAtPoint(ctx, coordinate)
		if err != nil {
			return err
		}
		results.sectors = sectors
		return nil
	})
	run("prescription_surf", func(ctx context.Context) error {
		presc, err := s.zoning.SurfacePrescriptionsAtPoint(ctx, coordinate)
		if err != nil {
			return err
		}
		results.surfacePresc = presc
		return nil
	})
	run("prescription_lin", func(ctx context.Context) error {
		presc, err := s.zoning.LinearPrescriptionsAtPoint(ctx, coordinate)
		if err != nil {
			return err
		}
		results.linearPresc = presc
		return nil
	})
	run("flood", func(ctx context.Context) error {
		flood, err := s.risks.FloodZoneAtPoint(ctx, coordinate)
		if err != nil {
			return err
		}
		results.flood = flood
		return nil
	})
	run("natural_risks", func(ctx context.Context) error {
		risks, err := s.risks.NaturalRisksAtPoint(ctx, coordinate)
		if err != nil {
			return err
		}
		results.naturalRisks = risks
		return nil
	})
	run("heritage", func(ctx context.Context) error {
		heritage, err := s.risks.HeritageAtPoint(ctx, coordinate)
		if err != nil {
			return err
		}
		results.heritage = heritage
		return nil
	})
	run("noise", func(ctx context.Context) error {
		noise, err := s.risks.NoiseExposureAtPoint(ctx, coordinate)
		if err != nil {
			return err
		}
		results.noise = noise
		return nil
	})

	wg.Wait()

	// Geometry-bearing features in a stable order: zoning first so the
	// primary-selection rule below stays deterministic.
	zones := make([]models.ZoneRecord, 0,
		len(results.zones)+len(results.sectors)+len(results.surfacePresc)+len(results.linearPresc))
	zones = append(zones, results.zones...)
	zones = append(zones, results.sectors...)
	zones = append(zones, results.surfacePresc...)
	zones = append(zones, results.linearPresc...)

	s.resolveDocumentNames(ctx, zones)

	x, y := geoproj.ToWebMercator(coordinate.Latitude, coordinate.Longitude)

	info := &models.FullLocationInfo{
		Coordinate:   coordinate,
		Projected:    models.ProjectedCoordinate{X: x, Y: y},
		Zones:        zones,
		Flood:        results.flood,
		Heritage:     results.heritage,
		NaturalRisks: results.naturalRisks,
		Noise:        results.noise,
		ResolvedAt:   time.Now().UTC(),
	}
	info.PrimaryZone = selectPrimaryZone(results.zones, results.surfacePresc)

	return info
}

// selectPrimaryZone keeps the historical single-zone contract: the first
// zone-urba feature when one exists, otherwise the first surface
// prescription, otherwise none.
func selectPrimaryZone(zones, surfacePresc []models.ZoneRecord) *models.ZoneRecord {
	if len(zones) > 0 {
		primary := zones[0]
		return &primary
	}
	if len(surfacePresc) > 0 {
		primary := surfacePresc[0]
		return &primary
	}
	return nil
}

// resolveDocumentNames resolves the document name of every distinct
// partition observed in the zones, concurrently, and writes the names back.
// Only observed partitions are resolved, never the whole universe.
func (s *GeoQueryService) resolveDocumentNames(ctx context.Context, zones []models.ZoneRecord) {
	partitions := make(map[string]struct{})
	for _, z := range zones {
		if z.PartitionID != nil && *z.PartitionID != "" {
			partitions[*z.PartitionID] = struct{}{}
		}
	}
	if len(partitions) == 0 {
		return
	}

	var mu sync.Mutex
	names := make(map[string]*string, len(partitions))
	var wg sync.WaitGroup
	for partition := range partitions {
		wg.Add(1)
		go func(partition string) {
			defer wg.Done()
			name := s.namer.NameFor(ctx, partition)
			mu.Lock()
			names[partition] = name
			mu.Unlock()
		}(partition)
	}
	wg.Wait()

	for i := range zones {
		if zones[i].PartitionID == nil {
			continue
		}
		if name := names[*zones[i].PartitionID]; name != nil {
			zones[i].DocumentName = name
		}
	}
}
