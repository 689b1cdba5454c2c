package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeExtractor struct {
	answer     json.RawMessage
	err        error
	lastPrompt string
}

func (f *fakeExtractor) Extract(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func newTestExtractor(t *testing.T, fake *fakeExtractor) *RuleExtractor {
	t.Helper()
	e := NewRuleExtractor(fake, 5*time.Second, newTestLogger(), newTestMetrics("extractor_"+sanitize(t.Name())))
	e.pdfText = func(data []byte) (string, error) {
		return string(data), nil
	}
	return e
}

const reglementBody = `%PDF-TITRE II DISPOSITIONS APPLICABLES A LA ZONE UB
Article UB7 : les constructions doivent etre implantees a 4 metres des limites separatives.
Toutefois les piscines peuvent etre implantees a 2 metres.
La hauteur maximale est fixee a 9 metres.`

func TestRuleExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(reglementBody))
	}))
	defer server.Close()

	fake := &fakeExtractor{answer: json.RawMessage(`{
		"setback_boundary_m": 4,
		"max_height_m": 9,
		"pool": {"min_neighbor_setback_m": 2, "citation": "les piscines peuvent etre implantees a 2 metres"}
	}`)}

	extractor := newTestExtractor(t, fake)
	rules, err := extractor.Extract(context.Background(), server.URL, "UB", "Zone urbaine", "PLU Test")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if rules.SetbackBoundaryM == nil || *rules.SetbackBoundaryM != 4 {
		t.Errorf("SetbackBoundaryM = %v, want 4", rules.SetbackBoundaryM)
	}
	if rules.MaxHeightM == nil || *rules.MaxHeightM != 9 {
		t.Errorf("MaxHeightM = %v, want 9", rules.MaxHeightM)
	}
	// The general rule and the pool exception must survive side by side.
	if rules.Pool == nil || rules.Pool.MinNeighborSetbackM == nil || *rules.Pool.MinNeighborSetbackM != 2 {
		t.Errorf("Pool = %+v, want min_neighbor_setback_m 2", rules.Pool)
	}

	if !strings.Contains(fake.lastPrompt, "ZONE UB") && !strings.Contains(fake.lastPrompt, "UB") {
		t.Error("prompt should name the zone")
	}
	if !strings.Contains(fake.lastPrompt, "limites separatives") {
		t.Error("prompt should carry the located excerpt")
	}
}

func TestRuleExtractor_HTMLLandingPageRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(reglementBody))
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/doc.pdf">Télécharger le règlement</a></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fake := &fakeExtractor{answer: json.RawMessage(`{"max_height_m": 9}`)}
	extractor := newTestExtractor(t, fake)

	rules, err := extractor.Extract(context.Background(), server.URL+"/landing", "UB", "", "")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rules.MaxHeightM == nil || *rules.MaxHeightM != 9 {
		t.Errorf("MaxHeightM = %v, want 9", rules.MaxHeightM)
	}
}

func TestRuleExtractor_HTMLWithoutPDFLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Aucun document ici</body></html>`))
	}))
	defer server.Close()

	extractor := newTestExtractor(t, &fakeExtractor{})
	if _, err := extractor.Extract(context.Background(), server.URL, "UB", "", ""); err == nil {
		t.Fatal("expected an error for an HTML page without a PDF link")
	}
}

func TestRuleExtractor_NonPDFNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("PK\x03\x04 this is a zip"))
	}))
	defer server.Close()

	extractor := newTestExtractor(t, &fakeExtractor{})
	if _, err := extractor.Extract(context.Background(), server.URL, "UB", "", ""); err == nil {
		t.Fatal("expected an error for unsniffable content")
	}
}

func TestRuleExtractor_ExtractionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(reglementBody))
	}))
	defer server.Close()

	extractor := newTestExtractor(t, &fakeExtractor{err: errors.New("model unavailable")})
	if _, err := extractor.Extract(context.Background(), server.URL, "UB", "", ""); err == nil {
		t.Fatal("expected extraction failure to surface")
	}
}

func TestRuleExtractor_RejectsEmptyShell(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(reglementBody))
	}))
	defer server.Close()

	extractor := newTestExtractor(t, &fakeExtractor{answer: json.RawMessage(`{}`)})
	if _, err := extractor.Extract(context.Background(), server.URL, "UB", "", ""); err == nil {
		t.Fatal("an all-null answer must be rejected, never returned as rules")
	}
}

func TestIsPDFContent(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"plain pdf", []byte("%PDF-1.7 ..."), true},
		{"leading whitespace", []byte("\n  %PDF-1.4"), true},
		{"utf8 bom", []byte("\xef\xbb\xbf%PDF-1.4"), true},
		{"html", []byte("<html></html>"), false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPDFContent(tt.data); got != tt.want {
				t.Errorf("isPDFContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindEmbeddedPDFLink(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		pageURL string
		want    string
	}{
		{
			name:    "relative href resolved against page",
			html:    `<a href="/files/reglement.pdf">ici</a>`,
			pageURL: "https://registry.example/doc/42",
			want:    "https://registry.example/files/reglement.pdf",
		},
		{
			name:    "absolute href kept",
			html:    `<a href="https://cdn.example/reglement.pdf?v=2">ici</a>`,
			pageURL: "https://registry.example/doc/42",
			want:    "https://cdn.example/reglement.pdf?v=2",
		},
		{
			name:    "bare url fallback",
			html:    `voir https://cdn.example/reglement.pdf pour le texte`,
			pageURL: "https://registry.example/doc/42",
			want:    "https://cdn.example/reglement.pdf",
		},
		{
			name:    "no link",
			html:    `<p>rien</p>`,
			pageURL: "https://registry.example/doc/42",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findEmbeddedPDFLink(tt.html, tt.pageURL); got != tt.want {
				t.Errorf("findEmbeddedPDFLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRuleSet(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"usable general rule", `{"max_height_m": 9}`, false},
		{"usable pool-only rule", `{"pool": {"min_neighbor_setback_m": 2}}`, false},
		{"empty shell", `{}`, true},
		{"all nulls", `{"max_height_m": null, "pool": null}`, true},
		{"malformed json", `{"max_height_m": `, true},
		{"wrong value type", `{"max_height_m": "neuf"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRuleSet(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Errorf("parseRuleSet() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
