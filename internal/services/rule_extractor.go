package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"urbanisme-platform/internal/clients"
	"urbanisme-platform/internal/models"
	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/metrics"
	"urbanisme-platform/pkg/textmatch"
)

// maxDocumentBytes caps règlement downloads; anything larger is not a
// regulation PDF.
const maxDocumentBytes = 64 << 20

// ruleSchema is the fixed JSON schema the structured extractor must fill.
// Field names line up with the RuleSet JSON tags so the answer unmarshals
// directly.
var ruleSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"setback_boundary_m": {"type": ["number", "null"], "description": "recul général par rapport aux limites séparatives, en mètres"},
		"setback_public_way_m": {"type": ["number", "null"], "description": "recul général par rapport aux voies et emprises publiques, en mètres"},
		"max_height_m": {"type": ["number", "null"], "description": "hauteur maximale des constructions, en mètres"},
		"max_footprint_ratio": {"type": ["number", "null"], "description": "emprise au sol maximale, fraction entre 0 et 1"},
		"biotope_required": {"type": ["boolean", "null"], "description": "un coefficient de biotope ou de pleine terre est-il exigé"},
		"pool": {
			"type": ["object", "null"],
			"properties": {
				"min_neighbor_setback_m": {"type": ["number", "null"], "description": "recul minimal des piscines par rapport aux limites séparatives, en mètres"},
				"biotope_required": {"type": ["boolean", "null"]},
				"citation": {"type": ["string", "null"], "description": "citation exacte de la règle piscine"}
			},
			"additionalProperties": false
		}
	},
	"additionalProperties": false
}`)

var (
	pdfMagic      = []byte("%PDF")
	htmlPDFHref   = regexp.MustCompile(`(?i)(?:href|src)\s*=\s*["']([^"']+\.pdf[^"']*)["']`)
	htmlPDFBare   = regexp.MustCompile(`(?i)https?://[^\s"'<>]+\.pdf`)
	htmlSignature = []string{"<!doctype", "<html", "<head", "<body"}
)

// RuleExtractor fetches a règlement, locates the zone-specific section and
// asks the structured extractor for the numeric rules. Every failure mode
// yields a nil RuleSet; the feasibility analysis proceeds without numbers.
type RuleExtractor struct {
	extractor  clients.StructuredExtractor
	httpClient *http.Client
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector

	// pdfText is swappable so tests can feed plain text through the
	// pipeline without crafting real PDF bytes.
	pdfText func(data []byte) (string, error)
}

// NewRuleExtractor creates a new rule extractor
func NewRuleExtractor(extractor clients.StructuredExtractor, documentTimeout time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RuleExtractor {
	return &RuleExtractor{
		extractor:  extractor,
		httpClient: &http.Client{Timeout: documentTimeout},
		logger:     logger,
		metrics:    metricsCollector,
		pdfText:    extractPDFText,
	}
}

// Extract runs the full pipeline for one document and zone. Returns nil on
// any recoverable failure; the error carries the reason for logging but the
// caller treats every failure the same way.
func (e *RuleExtractor) Extract(ctx context.Context, documentURL, zoneCode, zoneLabel, documentName string) (*models.RuleSet, error) {
	e.metrics.ExtractionRequestsTotal.Inc()
	timer := e.metrics.NewTimer(e.metrics.ExtractionDuration)
	defer timer.ObserveDuration()

	data, err := e.fetchDocument(ctx, documentURL)
	if err != nil {
		e.metrics.RecordExtractionError("fetch")
		return nil, err
	}

	text, err := e.pdfText(data)
	if err != nil {
		e.metrics.RecordExtractionError("pdf_text")
		return nil, fmt.Errorf("failed to extract text from %s: %w", documentURL, err)
	}
	if strings.TrimSpace(text) == "" {
		e.metrics.RecordExtractionError("empty_text")
		return nil, fmt.Errorf("document %s produced no text", documentURL)
	}

	candidates := []string{"ZONE " + zoneCode, zoneCode, zoneLabel}
	excerpt, found := textmatch.Locate(text, candidates)
	if !found {
		e.logger.Warn(ctx, "[EXTRACT_SECTION_FALLBACK] Zone section not found, using document head", logging.Fields{
			"zone_code":    zoneCode,
			"document_url": documentURL,
		})
	}

	prompt := buildExtractionPrompt(zoneCode, zoneLabel, documentName, excerpt)

	raw, err := e.extractor.Extract(ctx, prompt, ruleSchema)
	if err != nil {
		e.metrics.RecordExtractionError("extraction_call")
		return nil, fmt.Errorf("structured extraction failed for zone %s: %w", zoneCode, err)
	}

	rules, err := parseRuleSet(raw)
	if err != nil {
		e.metrics.RecordExtractionError("schema_violation")
		return nil, fmt.Errorf("extraction result rejected for zone %s: %w", zoneCode, err)
	}
	return rules, nil
}

// fetchDocument downloads the document bytes. Registries sometimes serve an
// HTML landing page where the direct PDF was expected; content is sniffed
// by magic bytes rather than trusting the declared content type, and one
// embedded-link redirect is followed.
func (e *RuleExtractor) fetchDocument(ctx context.Context, documentURL string) ([]byte, error) {
	data, err := e.fetchBytes(ctx, documentURL)
	if err != nil {
		return nil, err
	}

	if isPDFContent(data) {
		e.metrics.DocumentFetchBytes.Observe(float64(len(data)))
		return data, nil
	}

	if !isHTMLContent(data) {
		return nil, fmt.Errorf("document %s is neither PDF nor HTML", documentURL)
	}

	pdfURL := findEmbeddedPDFLink(string(data), documentURL)
	if pdfURL == "" {
		return nil, fmt.Errorf("document %s is an HTML page without an embedded PDF link", documentURL)
	}

	data, err = e.fetchBytes(ctx, pdfURL)
	if err != nil {
		return nil, err
	}
	if !isPDFContent(data) {
		return nil, fmt.Errorf("embedded link %s did not serve a PDF", pdfURL)
	}
	e.metrics.DocumentFetchBytes.Observe(float64(len(data)))
	return data, nil
}

func (e *RuleExtractor) fetchBytes(ctx context.Context, documentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", documentURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document %s returned status %d", documentURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", documentURL, err)
	}
	return data, nil
}

// isPDFContent sniffs the %PDF magic, tolerating a UTF-8 BOM or leading
// whitespace some servers prepend.
func isPDFContent(data []byte) bool {
	head := bytes.TrimLeft(data[:min(len(data), 1024)], " \t\r\n\xef\xbb\xbf")
	return bytes.HasPrefix(head, pdfMagic)
}

func isHTMLContent(data []byte) bool {
	head := strings.ToLower(string(data[:min(len(data), 2048)]))
	for _, marker := range htmlSignature {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}

// findEmbeddedPDFLink scans an HTML landing page for a .pdf link, first as
// an href/src attribute, then as a bare absolute URL. Relative links are
// resolved against the page URL.
func findEmbeddedPDFLink(html, pageURL string) string {
	if m := htmlPDFHref.FindStringSubmatch(html); m != nil {
		return resolveLink(m[1], pageURL)
	}
	if m := htmlPDFBare.FindString(html); m != "" {
		return m
	}
	return ""
}

func resolveLink(link, pageURL string) string {
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// extractPDFText pulls the plain text out of PDF bytes.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if _, err := io.Copy(&b, textReader); err != nil {
		return "", err
	}
	return b.String(), nil
}

// buildExtractionPrompt frames the excerpt for the structured extractor.
// The double-rule instruction matters most: many règlements state a general
// setback immediately followed by a narrower exception for pools, and
// keeping only one of the two produces wrong compliance answers downstream.
func buildExtractionPrompt(zoneCode, zoneLabel, documentName, excerpt string) string {
	var b strings.Builder
	b.WriteString("Tu analyses un extrait du règlement d'un document d'urbanisme français")
	if documentName != "" {
		b.WriteString(" (")
		b.WriteString(documentName)
		b.WriteString(")")
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Zone concernée : %s", zoneCode)
	if zoneLabel != "" && zoneLabel != zoneCode {
		fmt.Fprintf(&b, " (%s)", zoneLabel)
	}
	b.WriteString(".\n\n")
	b.WriteString("Extrais les valeurs numériques réglementaires applicables à cette zone.\n")
	b.WriteString("Règles impératives :\n")
	b.WriteString("- Si le texte énonce une règle générale ET une exception pour un type d'ouvrage (par exemple les piscines), renseigne LES DEUX : la règle générale dans les champs généraux, l'exception dans le bloc correspondant. Ne remplace jamais l'une par l'autre et n'abandonne jamais une exception au profit de la règle générale.\n")
	b.WriteString("- Laisse à null tout champ dont la valeur n'apparaît pas explicitement dans le texte. N'invente aucune valeur.\n")
	b.WriteString("- Les reculs et hauteurs sont en mètres ; l'emprise au sol est une fraction entre 0 et 1.\n\n")
	b.WriteString("Extrait du règlement :\n---\n")
	b.WriteString(excerpt)
	b.WriteString("\n---\n")
	return b.String()
}

// parseRuleSet validates the extractor's answer. A payload that does not
// parse, or that parses to an all-null shell, is rejected: storing an empty
// shell would wrongly satisfy the cache validity predicate later.
func parseRuleSet(raw json.RawMessage) (*models.RuleSet, error) {
	var rules models.RuleSet
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if err := decoder.Decode(&rules); err != nil {
		return nil, fmt.Errorf("payload does not match rule schema: %w", err)
	}
	if !rules.HasUsableSignal() {
		return nil, fmt.Errorf("payload carries no usable rule values")
	}
	return &rules, nil
}
