package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"urbanisme-platform/pkg/logging"
)

// RegistryClient fetches planning-document metadata from the
// Géoportail de l'Urbanisme document registry.
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.StructuredLogger
}

// NewRegistryClient creates a new document registry client
func NewRegistryClient(baseURL string, timeout time.Duration, logger *logging.StructuredLogger) *RegistryClient {
	return &RegistryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// DocumentPart is one named asset (a file) of a planning document.
type DocumentPart struct {
	Name *string `json:"name"`
	URL  *string `json:"url"`
}

// DocumentDetails is the registry metadata for one planning document.
type DocumentDetails struct {
	ID             string         `json:"id"`
	Name           *string        `json:"name"`
	DocumentType   *string        `json:"documentType"`
	ApprovalDate   *string        `json:"approbationDate"`
	WrittenParts   []DocumentPart `json:"writtenParts"`
	GraphicalParts []DocumentPart `json:"graphicalParts"`
	Annexes        []DocumentPart `json:"annexes"`
}

// DocumentDetails fetches the registry metadata for a document id. Returns
// nil when the registry knows the id but has no exploitable details, which
// happens for documents uploaded without digitized parts.
func (r *RegistryClient) DocumentDetails(ctx context.Context, documentID string) (*DocumentDetails, error) {
	u := fmt.Sprintf("%s/document/%s/details", r.baseURL, documentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d for document %s", resp.StatusCode, documentID)
	}

	var details DocumentDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("registry returned invalid payload: %w", err)
	}

	if details.Name == nil {
		// The registry sometimes answers 200 with an empty object.
		return nil, nil
	}
	details.ID = documentID
	return &details, nil
}
