package services

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"urbanisme-platform/pkg/logging"
)

// TerritoryDirectory resolves administrative codes to canonical names.
// Best-effort: nil means "name unknown", errors cover transport failures.
type TerritoryDirectory interface {
	CommuneName(ctx context.Context, inseeCode string) (*string, error)
	EPCIName(ctx context.Context, sirenCode string) (*string, error)
}

// partitionPattern is the fixed lexical grammar of GPU partition ids:
// a document-type prefix, a 5-digit INSEE code or 9-digit SIREN, and an
// optional suffix segment.
var partitionPattern = regexp.MustCompile(`^([A-Z]+)_(\d{5}|\d{9})(?:_([A-Za-z0-9]+))?$`)

// docTypeLabels maps partition type prefixes to the human document labels
// used in composed names.
var docTypeLabels = map[string]string{
	"PLU":  "PLU",
	"PLUI": "PLUi",
	"PSMV": "PSMV",
	"POS":  "POS",
	"CC":   "Carte Communale",
	"RNU":  "RNU",
}

// TerritoryNamer resolves a zone partition id to a human document name such
// as "PLUi Nantes Métropole". Names are memoized for the process lifetime:
// territory names are effectively static, so no expiration is needed.
type TerritoryNamer struct {
	directory TerritoryDirectory
	logger    *logging.StructuredLogger

	mu    sync.Mutex
	names map[string]string
}

// NewTerritoryNamer creates a new territory namer
func NewTerritoryNamer(directory TerritoryDirectory, logger *logging.StructuredLogger) *TerritoryNamer {
	return &TerritoryNamer{
		directory: directory,
		logger:    logger,
		names:     make(map[string]string),
	}
}

// NameFor resolves a partition id to its document name. Returns nil, never
// an error, when the partition does not match the grammar or the directory
// has no name for the code; the caller degrades to a nameless zone.
func (t *TerritoryNamer) NameFor(ctx context.Context, partitionID string) *string {
	match := partitionPattern.FindStringSubmatch(partitionID)
	if match == nil {
		return nil
	}

	t.mu.Lock()
	if cached, ok := t.names[partitionID]; ok {
		t.mu.Unlock()
		return &cached
	}
	t.mu.Unlock()

	typeCode, code := match[1], match[2]
	intercommunal := len(code) == 9

	var territoryName *string
	var err error
	if intercommunal {
		territoryName, err = t.directory.EPCIName(ctx, code)
	} else {
		territoryName, err = t.directory.CommuneName(ctx, code)
	}
	if err != nil {
		t.logger.Warn(ctx, "[NAMER_DIRECTORY_ERROR] Territory directory lookup failed", logging.Fields{
			"partition_id": partitionID,
			"code":         code,
			"error":        err.Error(),
		})
		return nil
	}
	if territoryName == nil {
		return nil
	}

	name := fmt.Sprintf("%s %s", labelForType(typeCode, intercommunal), *territoryName)

	// Concurrent callers may race to populate the same key; the overwrite
	// is idempotent so last-writer-wins is fine.
	t.mu.Lock()
	t.names[partitionID] = name
	t.mu.Unlock()

	return &name
}

// labelForType returns the document label for a partition type prefix.
// Unknown prefixes fall back to the generic PLU/PLUi label depending on
// whether the code is inter-communal.
func labelForType(typeCode string, intercommunal bool) string {
	if label, ok := docTypeLabels[typeCode]; ok {
		return label
	}
	if intercommunal {
		return "PLUi"
	}
	return "PLU"
}
