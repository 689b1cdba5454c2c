package services

import (
	"context"
	"strings"

	"urbanisme-platform/internal/clients"
	"urbanisme-platform/internal/models"
	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/textmatch"
)

// DocumentSource provides the point-in-polygon document lookup.
type DocumentSource interface {
	DocumentsAtPoint(ctx context.Context, c models.Coordinate) ([]clients.DocumentSummary, error)
}

// DocumentRegistry provides document metadata by id.
type DocumentRegistry interface {
	DocumentDetails(ctx context.Context, documentID string) (*clients.DocumentDetails, error)
}

// documentTypePriority orders overlapping planning documents when the point
// lookup returns several: inter-communal plans supersede communal ones.
var documentTypePriority = []string{"PLUi", "PLU", "CC", "POS", "PSMV"}

// DocumentResolver finds the authoritative planning document for a zone and
// selects its written-regulation asset.
type DocumentResolver struct {
	documents DocumentSource
	registry  DocumentRegistry
	logger    *logging.StructuredLogger
}

// NewDocumentResolver creates a new document resolver
func NewDocumentResolver(documents DocumentSource, registry DocumentRegistry, logger *logging.StructuredLogger) *DocumentResolver {
	return &DocumentResolver{
		documents: documents,
		registry:  registry,
		logger:    logger,
	}
}

// ResolveDocument locates the règlement of the document governing the zone.
// A nil handle with a nil error is the expected outcome for zones without a
// digitized regulation; errors are reserved for transport failures.
func (r *DocumentResolver) ResolveDocument(ctx context.Context, zone *models.ZoneRecord, coordinate models.Coordinate) (*models.DocumentHandle, error) {
	documentID := ""
	if zone != nil && zone.DocumentID != nil {
		documentID = *zone.DocumentID
	}

	if documentID == "" {
		id, err := r.documentIDAtPoint(ctx, coordinate)
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, nil
		}
		documentID = id
	}

	details, err := r.registry.DocumentDetails(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, nil
	}

	regulationURL := selectRegulationURL(details.WrittenParts)
	if regulationURL == "" {
		r.logger.Info(ctx, "[RESOLVER_NO_REGLEMENT] Document has no qualifying written regulation", logging.Fields{
			"document_id":   documentID,
			"written_parts": len(details.WrittenParts),
		})
		return nil, nil
	}

	handle := &models.DocumentHandle{
		DocumentID:         documentID,
		DocumentType:       details.DocumentType,
		ApprovalDate:       details.ApprovalDate,
		RegulationURL:      regulationURL,
		WrittenPartCount:   len(details.WrittenParts),
		GraphicalPartCount: len(details.GraphicalParts),
		AnnexCount:         len(details.Annexes),
	}
	if details.Name != nil {
		handle.Name = *details.Name
	}
	return handle, nil
}

// documentIDAtPoint picks the governing document among those covering the
// coordinate, by type priority, falling back to the first entry.
func (r *DocumentResolver) documentIDAtPoint(ctx context.Context, coordinate models.Coordinate) (string, error) {
	docs, err := r.documents.DocumentsAtPoint(ctx, coordinate)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", nil
	}

	for _, wanted := range documentTypePriority {
		for _, doc := range docs {
			if doc.DocumentType != nil && *doc.DocumentType == wanted && doc.ID != nil {
				return *doc.ID, nil
			}
		}
	}
	if docs[0].ID != nil {
		return *docs[0].ID, nil
	}
	return "", nil
}

// selectRegulationURL picks the written-regulation PDF among a document's
// named parts: a part whose name mentions the règlement without being the
// graphical one, ending in .pdf; otherwise the first PDF part present.
func selectRegulationURL(parts []clients.DocumentPart) string {
	for _, part := range parts {
		if part.URL == nil || part.Name == nil {
			continue
		}
		name := textmatch.Normalize(*part.Name)
		if strings.Contains(name, "reglement") && !strings.Contains(name, "graphique") && isPDF(*part.URL) {
			return *part.URL
		}
	}
	for _, part := range parts {
		if part.URL != nil && isPDF(*part.URL) {
			return *part.URL
		}
	}
	return ""
}

func isPDF(url string) bool {
	return strings.HasSuffix(strings.ToLower(url), ".pdf")
}
