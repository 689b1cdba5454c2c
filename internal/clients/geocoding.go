package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"urbanisme-platform/internal/models"
	"urbanisme-platform/pkg/logging"
)

// GeocodingClient converts a postal address into a WGS84 coordinate via the
// BAN-style address search endpoint.
type GeocodingClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.StructuredLogger
}

// NewGeocodingClient creates a new address search client
func NewGeocodingClient(baseURL string, timeout time.Duration, logger *logging.StructuredLogger) *GeocodingClient {
	return &GeocodingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GeocodeResult is the best match for a searched address.
type GeocodeResult struct {
	Coordinate models.Coordinate `json:"coordinate"`
	Label      string            `json:"label"`
	Score      float64           `json:"score"`
}

// Search geocodes an address. Returns nil when no match is found, which is
// an expected outcome for misspelled or foreign addresses.
func (g *GeocodingClient) Search(ctx context.Context, address string) (*GeocodeResult, error) {
	u := fmt.Sprintf("%s/search/?q=%s&limit=1", g.baseURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var payload struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Label *string  `json:"label"`
				Score *float64 `json:"score"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("geocoding returned invalid payload: %w", err)
	}

	if len(payload.Features) == 0 || len(payload.Features[0].Geometry.Coordinates) < 2 {
		return nil, nil
	}

	feature := payload.Features[0]
	result := &GeocodeResult{
		Coordinate: models.Coordinate{
			// GeoJSON order is lon, lat.
			Longitude: feature.Geometry.Coordinates[0],
			Latitude:  feature.Geometry.Coordinates[1],
		},
		Label: deref(feature.Properties.Label),
	}
	if feature.Properties.Score != nil {
		result.Score = *feature.Properties.Score
	}
	return result, nil
}
