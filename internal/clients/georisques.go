package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"urbanisme-platform/internal/models"
	"urbanisme-platform/pkg/logging"
)

// RiskClient queries the Géorisques point-lookup endpoints for flood plans,
// seismic/clay classification, heritage perimeters and airport-noise
// exposure. Each record follows the tri-state contract documented on the
// models: absent, classified, or present-but-unverifiable.
type RiskClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.StructuredLogger
}

// NewRiskClient creates a new Géorisques client
func NewRiskClient(baseURL string, timeout time.Duration, logger *logging.StructuredLogger) *RiskClient {
	return &RiskClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (r *RiskClient) fetchJSON(ctx context.Context, path string, c models.Coordinate, out interface{}) error {
	u := fmt.Sprintf("%s%s?latlon=%f,%f", r.baseURL, path, c.Longitude, c.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("georisques %s query failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("georisques %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("georisques %s returned invalid payload: %w", path, err)
	}
	return nil
}

func strPtr(s string) *string { return &s }

// FloodZoneAtPoint resolves PPRI flood-plan exposure at a coordinate.
func (r *RiskClient) FloodZoneAtPoint(ctx context.Context, c models.Coordinate) (models.FloodZoneInfo, error) {
	var payload struct {
		Data []struct {
			LibellePPR   *string `json:"libelle_ppr"`
			CodeZone     *string `json:"code_zone"`
			LibelleAlea  *string `json:"libelle_alea"`
			EtatProcPPR  *string `json:"etat_procedure"`
		} `json:"data"`
	}
	if err := r.fetchJSON(ctx, "/v1/ppr", c, &payload); err != nil {
		return models.FloodZoneInfo{}, err
	}

	if len(payload.Data) == 0 {
		return models.FloodZoneInfo{}, nil
	}

	entry := payload.Data[0]
	if entry.CodeZone == nil && entry.LibelleAlea == nil {
		// Plan exists over the commune but the zoning at this point is not
		// digitized; must not be reported as "not in zone".
		return models.FloodZoneInfo{
			Caveat: strPtr("un plan de prévention du risque inondation couvre ce secteur mais le zonage précis n'est pas vérifiable"),
		}, nil
	}

	info := models.FloodZoneInfo{
		InFloodZone: true,
		PlanName:    entry.LibellePPR,
	}
	if entry.CodeZone != nil {
		info.ZoneType = entry.CodeZone
	} else {
		info.ZoneType = entry.LibelleAlea
	}
	return info, nil
}

// NaturalRisksAtPoint resolves seismic zoning and clay shrink-swell exposure.
func (r *RiskClient) NaturalRisksAtPoint(ctx context.Context, c models.Coordinate) (models.NaturalRiskInfo, error) {
	var seismic struct {
		Data []struct {
			ZoneSismicite *string `json:"zone_sismicite"`
		} `json:"data"`
	}
	if err := r.fetchJSON(ctx, "/v1/zonage_sismique", c, &seismic); err != nil {
		return models.NaturalRiskInfo{}, err
	}

	var clay struct {
		Exposition *string `json:"exposition"`
	}
	clayErr := r.fetchJSON(ctx, "/v1/rga", c, &clay)

	info := models.NaturalRiskInfo{}
	if len(seismic.Data) > 0 && seismic.Data[0].ZoneSismicite != nil {
		if level := parseSeismicLevel(*seismic.Data[0].ZoneSismicite); level != nil {
			info.SeismicLevel = level
			info.InRiskZone = *level >= 2
		}
	}
	if clayErr == nil && clay.Exposition != nil {
		info.ClayRiskLevel = clay.Exposition
		if *clay.Exposition == "Moyen" || *clay.Exposition == "Fort" {
			info.InRiskZone = true
		}
	} else if clayErr != nil && info.SeismicLevel == nil {
		info.Caveat = strPtr("exposition sismique et argile non vérifiable pour ce point")
	}
	return info, nil
}

// parseSeismicLevel maps the textual seismic zone ("1" through "5", with
// occasional legacy labels) to its numeric level.
func parseSeismicLevel(zone string) *int {
	for level := 1; level <= 5; level++ {
		if zone == fmt.Sprintf("%d", level) {
			l := level
			return &l
		}
	}
	return nil
}

// HeritageAtPoint resolves ABF protected-monument perimeters (AC1
// servitudes) at a coordinate.
func (r *RiskClient) HeritageAtPoint(ctx context.Context, c models.Coordinate) (models.HeritageProtectionInfo, error) {
	var payload struct {
		Data []struct {
			Libelle       *string `json:"libelle"`
			TypeServitude *string `json:"type_servitude"`
		} `json:"data"`
	}
	if err := r.fetchJSON(ctx, "/v1/monuments_historiques", c, &payload); err != nil {
		return models.HeritageProtectionInfo{}, err
	}

	if len(payload.Data) == 0 {
		return models.HeritageProtectionInfo{}, nil
	}

	entry := payload.Data[0]
	if entry.Libelle == nil {
		return models.HeritageProtectionInfo{
			Caveat: strPtr("périmètre de protection détecté mais le monument concerné n'est pas identifiable"),
		}, nil
	}
	return models.HeritageProtectionInfo{
		InProtectedArea: true,
		MonumentName:    entry.Libelle,
		ProtectionType:  entry.TypeServitude,
	}, nil
}

// NoiseExposureAtPoint resolves PEB aircraft-noise zoning at a coordinate.
func (r *RiskClient) NoiseExposureAtPoint(ctx context.Context, c models.Coordinate) (models.NoiseExposureInfo, error) {
	var payload struct {
		Data []struct {
			ZonePEB  *string `json:"zone_peb"`
			Aerodrome *string `json:"aerodrome"`
		} `json:"data"`
	}
	if err := r.fetchJSON(ctx, "/v1/peb", c, &payload); err != nil {
		return models.NoiseExposureInfo{}, err
	}

	if len(payload.Data) == 0 {
		return models.NoiseExposureInfo{}, nil
	}

	entry := payload.Data[0]
	if entry.ZonePEB == nil {
		return models.NoiseExposureInfo{
			Caveat:      strPtr("plan d'exposition au bruit présent mais la zone exacte n'est pas vérifiable"),
			AirportName: entry.Aerodrome,
		}, nil
	}
	return models.NoiseExposureInfo{
		InNoiseZone: true,
		NoiseZone:   entry.ZonePEB,
		AirportName: entry.Aerodrome,
	}, nil
}
