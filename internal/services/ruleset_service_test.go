package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"urbanisme-platform/internal/clients"
	"urbanisme-platform/internal/models"
)

type fakeRuleCache struct {
	entries map[string]*models.RuleCacheEntry
	getErr  error
	putErr  error

	gets int
	puts int
}

func newFakeRuleCache() *fakeRuleCache {
	return &fakeRuleCache{entries: make(map[string]*models.RuleCacheEntry)}
}

func (f *fakeRuleCache) key(insee, zone string) string { return insee + ":" + zone }

func (f *fakeRuleCache) Get(ctx context.Context, inseeCode, zoneCode string) (*models.RuleCacheEntry, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	entry, ok := f.entries[f.key(inseeCode, zoneCode)]
	if !ok || entry.IsExpired(time.Now().UTC()) {
		return nil, nil
	}
	return entry, nil
}

func (f *fakeRuleCache) Put(ctx context.Context, entry *models.RuleCacheEntry) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[f.key(entry.InseeCode, entry.ZoneCode)] = entry
	return nil
}

func (f *fakeRuleCache) PurgeExpired(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeRuleCache) CountExpired(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeRuleCache) HealthCheck(ctx context.Context) error           { return nil }

// countingDocumentSource tracks point lookups so tests can prove a cache hit
// never reaches the upstreams.
type countingDocumentSource struct {
	docs  []clients.DocumentSummary
	calls int
}

func (c *countingDocumentSource) DocumentsAtPoint(ctx context.Context, coord models.Coordinate) ([]clients.DocumentSummary, error) {
	c.calls++
	return c.docs, nil
}

func newRuleSetFixture(t *testing.T, cache *fakeRuleCache, answer json.RawMessage) (*RuleSetService, *countingDocumentSource, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(reglementBody))
	}))
	t.Cleanup(server.Close)

	regURL := server.URL + "/reglement.pdf"
	source := &countingDocumentSource{docs: []clients.DocumentSummary{
		{ID: strPtr("doc-1"), DocumentType: strPtr("PLU")},
	}}
	registry := &fakeRegistry{details: map[string]*clients.DocumentDetails{
		"doc-1": {
			ID:           "doc-1",
			Name:         strPtr("PLU Test"),
			DocumentType: strPtr("PLU"),
			WrittenParts: []clients.DocumentPart{part("Règlement", regURL)},
		},
	}}

	resolver := NewDocumentResolver(source, registry, newTestLogger())
	extractor := newTestExtractor(t, &fakeExtractor{answer: answer})
	svc := NewRuleSetService(cache, resolver, extractor, 30*24*time.Hour, newTestLogger(), newTestMetrics("ruleset_"+sanitize(t.Name())))
	return svc, source, server
}

func TestRuleSetService_CacheHit(t *testing.T) {
	cache := newFakeRuleCache()
	cache.entries["31555:UB"] = &models.RuleCacheEntry{
		InseeCode: "31555",
		ZoneCode:  "UB",
		Rules:     models.RuleSet{MaxHeightM: floatPtr(9)},
		ExpiresAt: time.Now().Add(time.Hour),
	}

	svc, source, _ := newRuleSetFixture(t, cache, json.RawMessage(`{"max_height_m": 12}`))

	rules, err := svc.ResolveRuleSet(context.Background(), "31555", "UB", "", models.Coordinate{})
	if err != nil {
		t.Fatalf("ResolveRuleSet() error = %v", err)
	}
	if rules == nil || rules.MaxHeightM == nil || *rules.MaxHeightM != 9 {
		t.Fatalf("rules = %+v, want cached max height 9", rules)
	}
	if source.calls != 0 {
		t.Errorf("document lookups = %d, want 0 on cache hit", source.calls)
	}
}

func TestRuleSetService_ShellEntryTriggersReExtraction(t *testing.T) {
	cache := newFakeRuleCache()
	cache.entries["31555:UB"] = &models.RuleCacheEntry{
		InseeCode: "31555",
		ZoneCode:  "UB",
		Rules:     models.RuleSet{},
		ExpiresAt: time.Now().Add(time.Hour),
	}

	svc, source, _ := newRuleSetFixture(t, cache, json.RawMessage(`{"max_height_m": 12}`))

	rules, err := svc.ResolveRuleSet(context.Background(), "31555", "UB", "", models.Coordinate{})
	if err != nil {
		t.Fatalf("ResolveRuleSet() error = %v", err)
	}
	if rules == nil || rules.MaxHeightM == nil || *rules.MaxHeightM != 12 {
		t.Fatalf("rules = %+v, want freshly extracted max height 12", rules)
	}
	if source.calls == 0 {
		t.Error("a cached shell must not satisfy the request")
	}
}

func TestRuleSetService_MissExtractsAndStores(t *testing.T) {
	cache := newFakeRuleCache()
	svc, _, server := newRuleSetFixture(t, cache, json.RawMessage(`{"setback_boundary_m": 4}`))

	rules, err := svc.ResolveRuleSet(context.Background(), "31555", "UB", "PLU Test", models.Coordinate{Latitude: 43.6, Longitude: 1.44})
	if err != nil {
		t.Fatalf("ResolveRuleSet() error = %v", err)
	}
	if rules == nil || rules.SetbackBoundaryM == nil || *rules.SetbackBoundaryM != 4 {
		t.Fatalf("rules = %+v, want setback 4", rules)
	}

	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.puts)
	}
	stored := cache.entries["31555:UB"]
	if stored == nil {
		t.Fatal("extracted rules not stored")
	}
	if stored.SourceURL != server.URL+"/reglement.pdf" {
		t.Errorf("SourceURL = %q", stored.SourceURL)
	}
	wantExpiry := time.Now().UTC().Add(30 * 24 * time.Hour)
	if diff := stored.ExpiresAt.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("ExpiresAt = %v, want about %v", stored.ExpiresAt, wantExpiry)
	}
}

func TestRuleSetService_NoDocumentIsNotAnError(t *testing.T) {
	cache := newFakeRuleCache()
	resolver := NewDocumentResolver(&fakeDocumentSource{}, &fakeRegistry{}, newTestLogger())
	extractor := newTestExtractor(t, &fakeExtractor{})
	svc := NewRuleSetService(cache, resolver, extractor, time.Hour, newTestLogger(), newTestMetrics("ruleset_"+sanitize(t.Name())))

	rules, err := svc.ResolveRuleSet(context.Background(), "31555", "N", "", models.Coordinate{})
	if err != nil {
		t.Fatalf("ResolveRuleSet() error = %v", err)
	}
	if rules != nil {
		t.Errorf("rules = %+v, want nil for an undigitized zone", rules)
	}
	if cache.puts != 0 {
		t.Error("nothing extractable must never be cached")
	}
}

func TestRuleSetService_CacheReadFailureDegradesToExtraction(t *testing.T) {
	cache := newFakeRuleCache()
	cache.getErr = errors.New("connection refused")

	svc, _, _ := newRuleSetFixture(t, cache, json.RawMessage(`{"max_height_m": 12}`))

	rules, err := svc.ResolveRuleSet(context.Background(), "31555", "UB", "", models.Coordinate{})
	if err != nil {
		t.Fatalf("ResolveRuleSet() error = %v", err)
	}
	if rules == nil || rules.MaxHeightM == nil || *rules.MaxHeightM != 12 {
		t.Fatalf("rules = %+v, want extraction result despite cache failure", rules)
	}
}

func TestRuleSetService_CacheWriteFailureStillReturnsRules(t *testing.T) {
	cache := newFakeRuleCache()
	cache.putErr = errors.New("disk full")

	svc, _, _ := newRuleSetFixture(t, cache, json.RawMessage(`{"max_height_m": 12}`))

	rules, err := svc.ResolveRuleSet(context.Background(), "31555", "UB", "", models.Coordinate{})
	if err != nil {
		t.Fatalf("ResolveRuleSet() error = %v", err)
	}
	if rules == nil {
		t.Fatal("a failed cache write must not discard the extraction")
	}
}
