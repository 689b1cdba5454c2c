package services

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"urbanisme-platform/internal/models"
	"urbanisme-platform/internal/repository"
	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/metrics"
)

// RuleSetService resolves the regulatory rule set for a zone, mediating
// between the cache and the resolve-then-extract pipeline. Concurrent
// requests for the same zone are collapsed into one extraction.
type RuleSetService struct {
	cache     repository.RuleCacheRepository
	resolver  *DocumentResolver
	extractor *RuleExtractor
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	ttl       time.Duration

	group singleflight.Group
}

// NewRuleSetService creates a new rule set service
func NewRuleSetService(cache repository.RuleCacheRepository, resolver *DocumentResolver, extractor *RuleExtractor, ttl time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RuleSetService {
	return &RuleSetService{
		cache:     cache,
		resolver:  resolver,
		extractor: extractor,
		logger:    logger,
		metrics:   metricsCollector,
		ttl:       ttl,
	}
}

// ResolveRuleSet returns the rules governing (inseeCode, zoneCode). A nil
// rule set with a nil error means the zone has no extractable regulation,
// which the feasibility analysis must tolerate.
func (s *RuleSetService) ResolveRuleSet(ctx context.Context, inseeCode, zoneCode, documentNameHint string, coordinate models.Coordinate) (*models.RuleSet, error) {
	entry, err := s.cache.Get(ctx, inseeCode, zoneCode)
	if err != nil {
		// A broken cache degrades to extraction, never to a failed request.
		s.logger.Warn(ctx, "[RULESET_CACHE_ERROR] Cache read failed, falling through to extraction", logging.Fields{
			"insee_code": inseeCode,
			"zone_code":  zoneCode,
			"error":      err.Error(),
		})
		entry = nil
	}

	if entry != nil {
		if entry.Rules.HasUsableSignal() {
			s.metrics.RecordCacheHit()
			rules := entry.Rules
			return &rules, nil
		}
		// A stored all-null shell means a prior extraction produced
		// nothing; retry instead of serving the shell for 30 days.
		s.metrics.RecordCacheMiss("no_signal")
		s.logger.Info(ctx, "[RULESET_CACHE_SHELL] Cached entry has no usable signal, re-extracting", logging.Fields{
			"insee_code": inseeCode,
			"zone_code":  zoneCode,
		})
	} else {
		s.metrics.RecordCacheMiss("absent")
	}

	result, err, _ := s.group.Do(inseeCode+":"+zoneCode, func() (interface{}, error) {
		return s.extractAndStore(ctx, inseeCode, zoneCode, documentNameHint, coordinate)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*models.RuleSet), nil
}

// extractAndStore runs the resolve-then-extract pipeline and caches a
// successful result with full provenance.
func (s *RuleSetService) extractAndStore(ctx context.Context, inseeCode, zoneCode, documentNameHint string, coordinate models.Coordinate) (interface{}, error) {
	zone := &models.ZoneRecord{
		ZoneCode:  zoneCode,
		InseeCode: inseeCode,
	}
	if documentNameHint != "" {
		zone.DocumentName = &documentNameHint
	}

	handle, err := s.resolver.ResolveDocument(ctx, zone, coordinate)
	if err != nil {
		s.logger.Warn(ctx, "[RULESET_RESOLVE_ERROR] Document resolution failed", logging.Fields{
			"insee_code": inseeCode,
			"zone_code":  zoneCode,
			"error":      err.Error(),
		})
		return nil, nil
	}
	if handle == nil {
		// Expected for zones without a digitized regulation.
		return nil, nil
	}

	documentName := handle.Name
	if documentName == "" {
		documentName = documentNameHint
	}

	rules, err := s.extractor.Extract(ctx, handle.RegulationURL, zoneCode, "", documentName)
	if err != nil {
		s.logger.Warn(ctx, "[RULESET_EXTRACT_ERROR] Rule extraction failed", logging.Fields{
			"insee_code":   inseeCode,
			"zone_code":    zoneCode,
			"document_url": handle.RegulationURL,
			"error":        err.Error(),
		})
		return nil, nil
	}
	if rules == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	entry := &models.RuleCacheEntry{
		InseeCode:    inseeCode,
		ZoneCode:     zoneCode,
		Rules:        *rules,
		SourceURL:    handle.RegulationURL,
		DocumentID:   &handle.DocumentID,
		DocumentType: handle.DocumentType,
		DocumentDate: handle.ApprovalDate,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if documentName != "" {
		entry.DocumentName = &documentName
	}

	if err := s.cache.Put(ctx, entry); err != nil {
		// The extraction still succeeded; the next request pays again.
		s.logger.Warn(ctx, "[RULESET_CACHE_WRITE_ERROR] Failed to store extracted rules", logging.Fields{
			"insee_code": inseeCode,
			"zone_code":  zoneCode,
			"error":      err.Error(),
		})
	}

	s.logger.Info(ctx, "[RULESET_EXTRACTED] Rules extracted and cached", logging.Fields{
		"insee_code":   inseeCode,
		"zone_code":    zoneCode,
		"document_url": handle.RegulationURL,
		"expires_at":   entry.ExpiresAt,
	})
	return rules, nil
}
