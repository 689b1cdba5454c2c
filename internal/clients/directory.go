package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"urbanisme-platform/pkg/logging"
)

// DirectoryClient resolves administrative codes to canonical territory
// names: INSEE codes for communes, SIREN codes for inter-communal entities
// (EPCI). Best-effort contract; callers treat nil as "name unknown".
type DirectoryClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.StructuredLogger
}

// NewDirectoryClient creates a new territory directory client
func NewDirectoryClient(baseURL string, timeout time.Duration, logger *logging.StructuredLogger) *DirectoryClient {
	return &DirectoryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (d *DirectoryClient) fetchName(ctx context.Context, path string) (*string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var payload struct {
		Nom *string `json:"nom"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("directory returned invalid payload: %w", err)
	}
	return payload.Nom, nil
}

// CommuneName returns the canonical name of a commune by INSEE code.
func (d *DirectoryClient) CommuneName(ctx context.Context, inseeCode string) (*string, error) {
	return d.fetchName(ctx, fmt.Sprintf("/communes/%s?fields=nom", inseeCode))
}

// EPCIName returns the canonical name of an inter-communal entity by SIREN.
func (d *DirectoryClient) EPCIName(ctx context.Context, sirenCode string) (*string, error) {
	return d.fetchName(ctx, fmt.Sprintf("/epcis/%s?fields=nom", sirenCode))
}
