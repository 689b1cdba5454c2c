package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"urbanisme-platform/internal/models"
	"urbanisme-platform/pkg/database"
	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/metrics"
)

// RuleCacheRepository persists extracted rule sets keyed by
// (insee_code, zone_code). Coordinates inside the same zone share rules, so
// no finer-grained key exists.
type RuleCacheRepository interface {
	// Get returns the stored entry, or nil on absence or expiration.
	// Expired entries are misses, never errors.
	Get(ctx context.Context, inseeCode, zoneCode string) (*models.RuleCacheEntry, error)

	// Put creates or overwrites the entry for its key.
	Put(ctx context.Context, entry *models.RuleCacheEntry) error

	// PurgeExpired deletes entries past their expiration and reports how
	// many were removed.
	PurgeExpired(ctx context.Context) (int64, error)

	// CountExpired reports how many entries PurgeExpired would remove.
	CountExpired(ctx context.Context) (int64, error)

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error
}

// ruleCacheRepository implements RuleCacheRepository on PostgreSQL
type ruleCacheRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRuleCacheRepository creates a new rule cache repository
func NewRuleCacheRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RuleCacheRepository {
	return &ruleCacheRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Get retrieves a cache entry by key, treating expiration as absence.
func (r *ruleCacheRepository) Get(ctx context.Context, inseeCode, zoneCode string) (*models.RuleCacheEntry, error) {
	query := `
		SELECT insee_code, zone_code, rules, source_url,
		       document_id, document_name, document_type, document_date,
		       created_at, expires_at
		FROM plu_rule_cache
		WHERE insee_code = $1 AND zone_code = $2
	`

	var row struct {
		InseeCode    string    `db:"insee_code"`
		ZoneCode     string    `db:"zone_code"`
		Rules        []byte    `db:"rules"`
		SourceURL    string    `db:"source_url"`
		DocumentID   *string   `db:"document_id"`
		DocumentName *string   `db:"document_name"`
		DocumentType *string   `db:"document_type"`
		DocumentDate *string   `db:"document_date"`
		CreatedAt    time.Time `db:"created_at"`
		ExpiresAt    time.Time `db:"expires_at"`
	}

	err := r.db.GetContext(ctx, "get_rule_cache", &row, query, inseeCode, zoneCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rule cache: %w", err)
	}

	entry := &models.RuleCacheEntry{
		InseeCode:    row.InseeCode,
		ZoneCode:     row.ZoneCode,
		SourceURL:    row.SourceURL,
		DocumentID:   row.DocumentID,
		DocumentName: row.DocumentName,
		DocumentType: row.DocumentType,
		DocumentDate: row.DocumentDate,
		CreatedAt:    row.CreatedAt,
		ExpiresAt:    row.ExpiresAt,
	}

	if entry.IsExpired(time.Now().UTC()) {
		r.logger.Debug(ctx, "[CACHE_EXPIRED] Entry past expiration treated as miss", logging.Fields{
			"insee_code": inseeCode,
			"zone_code":  zoneCode,
			"expired_at": row.ExpiresAt,
		})
		return nil, nil
	}

	if err := json.Unmarshal(row.Rules, &entry.Rules); err != nil {
		// A corrupted payload is a miss, not an error; re-extraction will
		// overwrite it.
		r.logger.Warn(ctx, "[CACHE_CORRUPT] Stored rules failed to decode, treating as miss", logging.Fields{
			"insee_code": inseeCode,
			"zone_code":  zoneCode,
			"error":      err.Error(),
		})
		return nil, nil
	}

	return entry, nil
}

// Put upserts a cache entry, stamping provenance and expiration as given.
func (r *ruleCacheRepository) Put(ctx context.Context, entry *models.RuleCacheEntry) error {
	rules, err := json.Marshal(entry.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	query := `
		INSERT INTO plu_rule_cache (
			insee_code, zone_code, rules, source_url,
			document_id, document_name, document_type, document_date,
			created_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (insee_code, zone_code) DO UPDATE SET
			rules = EXCLUDED.rules,
			source_url = EXCLUDED.source_url,
			document_id = EXCLUDED.document_id,
			document_name = EXCLUDED.document_name,
			document_type = EXCLUDED.document_type,
			document_date = EXCLUDED.document_date,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err = r.db.ExecContext(ctx, "put_rule_cache", query,
		entry.InseeCode,
		entry.ZoneCode,
		rules,
		entry.SourceURL,
		entry.DocumentID,
		entry.DocumentName,
		entry.DocumentType,
		entry.DocumentDate,
		entry.CreatedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write rule cache: %w", err)
	}

	r.logger.Debug(ctx, "[CACHE_PUT] Rule cache entry stored", logging.Fields{
		"insee_code": entry.InseeCode,
		"zone_code":  entry.ZoneCode,
		"expires_at": entry.ExpiresAt,
	})
	return nil
}

// PurgeExpired removes entries whose expiration has passed.
func (r *ruleCacheRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "purge_rule_cache",
		`DELETE FROM plu_rule_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge rule cache: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CountExpired counts entries whose expiration has passed.
func (r *ruleCacheRepository) CountExpired(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, "count_expired_rule_cache", &count,
		`SELECT COUNT(*) FROM plu_rule_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired entries: %w", err)
	}
	return count, nil
}

// HealthCheck performs a repository health check
func (r *ruleCacheRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
