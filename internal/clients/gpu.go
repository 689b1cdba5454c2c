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

// GPUClient queries the Géoportail de l'Urbanisme feature services
// (apicarto) by point geometry. Every endpoint follows the same contract:
// a GeoJSON FeatureCollection that may legitimately be empty — "no feature
// here" is a result, not an error.
type GPUClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.StructuredLogger
}

// NewGPUClient creates a new GPU feature-service client
func NewGPUClient(baseURL string, timeout time.Duration, logger *logging.StructuredLogger) *GPUClient {
	return &GPUClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// featureCollection is the GeoJSON envelope shared by all GPU endpoints.
// Properties are parsed per endpoint; every field is optional by contract.
type featureCollection struct {
	Features []struct {
		Properties json.RawMessage `json:"properties"`
	} `json:"features"`
}

// zoneProperties mirrors the zone-urba and secteur-cc feature payloads.
type zoneProperties struct {
	Libelle   *string `json:"libelle"`
	Libelong  *string `json:"libelong"`
	TypeZone  *string `json:"typezone"`
	Insee     *string `json:"insee"`
	Partition *string `json:"partition"`
	GPUDocID  *string `json:"gpu_doc_id"`
}

// prescriptionProperties mirrors prescription-surf and prescription-lin payloads.
type prescriptionProperties struct {
	Libelle   *string `json:"libelle"`
	Txt       *string `json:"txt"`
	TypePsc   *string `json:"typepsc"`
	Insee     *string `json:"insee"`
	Partition *string `json:"partition"`
	GPUDocID  *string `json:"gpu_doc_id"`
}

// DocumentSummary is one planning document returned by the point-in-polygon
// document lookup.
type DocumentSummary struct {
	ID           *string `json:"id"`
	Name         *string `json:"name"`
	DocumentType *string `json:"documentType"`
	State        *string `json:"state"`
	Collectivite *string `json:"collectiviteName"`
	ApprovalDate *string `json:"approbationDate"`
}

func pointGeometry(c models.Coordinate) string {
	geom := map[string]interface{}{
		"type":        "Point",
		"coordinates": []float64{c.Longitude, c.Latitude},
	}
	data, _ := json.Marshal(geom)
	return string(data)
}

func (g *GPUClient) fetchCollection(ctx context.Context, endpoint string, c models.Coordinate) (*featureCollection, error) {
	u := fmt.Sprintf("%s/gpu/%s?geom=%s", g.baseURL, endpoint, url.QueryEscape(pointGeometry(c)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gpu %s query failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gpu %s returned status %d", endpoint, resp.StatusCode)
	}

	var collection featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("gpu %s returned invalid payload: %w", endpoint, err)
	}
	return &collection, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (g *GPUClient) zonesFrom(collection *featureCollection, typeTag string) []models.ZoneRecord {
	zones := make([]models.ZoneRecord, 0, len(collection.Features))
	for _, f := range collection.Features {
		var props zoneProperties
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			continue
		}
		tag := typeTag
		if props.TypeZone != nil && *props.TypeZone != "" {
			tag = *props.TypeZone
		}
		zones = append(zones, models.ZoneRecord{
			ZoneCode:    deref(props.Libelle),
			ZoneLabel:   deref(props.Libelong),
			ZoneTypeTag: tag,
			InseeCode:   deref(props.Insee),
			PartitionID: props.Partition,
			DocumentID:  props.GPUDocID,
		})
	}
	return zones
}

func (g *GPUClient) prescriptionsFrom(collection *featureCollection, typeTag string) []models.ZoneRecord {
	zones := make([]models.ZoneRecord, 0, len(collection.Features))
	for _, f := range collection.Features {
		var props prescriptionProperties
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			continue
		}
		label := deref(props.Txt)
		if label == "" {
			label = deref(props.Libelle)
		}
		tag := typeTag
		if props.TypePsc != nil && *props.TypePsc != "" {
			tag = *props.TypePsc
		}
		zones = append(zones, models.ZoneRecord{
			ZoneCode:    deref(props.Libelle),
			ZoneLabel:   label,
			ZoneTypeTag: tag,
			InseeCode:   deref(props.Insee),
			PartitionID: props.Partition,
			DocumentID:  props.GPUDocID,
		})
	}
	return zones
}

// ZonesAtPoint returns the zone-urba features containing the coordinate.
func (g *GPUClient) ZonesAtPoint(ctx context.Context, c models.Coordinate) ([]models.ZoneRecord, error) {
	collection, err := g.fetchCollection(ctx, "zone-urba", c)
	if err != nil {
		return nil, err
	}
	return g.zonesFrom(collection, "zone-urba"), nil
}

// CommuneSectorsAtPoint returns carte-communale sectors at the coordinate.
func (g *GPUClient) CommuneSectorsAtPoint(ctx context.Context, c models.Coordinate) ([]models.ZoneRecord, error) {
	collection, err := g.fetchCollection(ctx, "secteur-cc", c)
	if err != nil {
		return nil, err
	}
	return g.zonesFrom(collection, "secteur-cc"), nil
}

// SurfacePrescriptionsAtPoint returns surface prescriptions at the coordinate.
func (g *GPUClient) SurfacePrescriptionsAtPoint(ctx context.Context, c models.Coordinate) ([]models.ZoneRecord, error) {
	collection, err := g.fetchCollection(ctx, "prescription-surf", c)
	if err != nil {
		return nil, err
	}
	return g.prescriptionsFrom(collection, "prescription-surf"), nil
}

// LinearPrescriptionsAtPoint returns linear prescriptions at the coordinate.
func (g *GPUClient) LinearPrescriptionsAtPoint(ctx context.Context, c models.Coordinate) ([]models.ZoneRecord, error) {
	collection, err := g.fetchCollection(ctx, "prescription-lin", c)
	if err != nil {
		return nil, err
	}
	return g.prescriptionsFrom(collection, "prescription-lin"), nil
}

// DocumentsAtPoint returns the planning documents whose territory contains
// the coordinate. Used by the document resolver when a zone record carries
// no document id of its own.
func (g *GPUClient) DocumentsAtPoint(ctx context.Context, c models.Coordinate) ([]DocumentSummary, error) {
	collection, err := g.fetchCollection(ctx, "document", c)
	if err != nil {
		return nil, err
	}
	docs := make([]DocumentSummary, 0, len(collection.Features))
	for _, f := range collection.Features {
		var doc DocumentSummary
		if err := json.Unmarshal(f.Properties, &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
