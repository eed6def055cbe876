package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/shuff57/wiSHlist-sub000/internal/config"
	"github.com/shuff57/wiSHlist-sub000/internal/urlutil"
	"github.com/shuff57/wiSHlist-sub000/pkg/types"
)

// SQLStore persists cache entries in a relational database shared across
// service instances. Metadata is stored as a JSON-encoded string column
// rather than native nested structure. The url_cache table intentionally
// has no unique index on normalized_url (see Store docs).
type SQLStore struct {
	db          *sql.DB
	ttl         time.Duration
	autoMigrate bool
}

// NewSQLStore initialises a SQLStore from configuration.
func NewSQLStore(cfg config.SQLConfig, ttl time.Duration) (*SQLStore, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if cfg.CreateIfMissing && shouldAttemptCreateDatabase(cfg.Driver, err) {
			_ = db.Close()
			if err := createDatabase(ctx, cfg); err != nil {
				return nil, err
			}
			db, err = sql.Open(cfg.Driver, cfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("open sql connection: %w", err)
			}
			if err := db.PingContext(ctx); err != nil {
				return nil, fmt.Errorf("ping sql connection: %w", err)
			}
		} else {
			return nil, fmt.Errorf("ping sql connection: %w", err)
		}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}
	store := &SQLStore{
		db:          db,
		ttl:         ttl,
		autoMigrate: cfg.AutoMigrate,
	}
	if cfg.AutoMigrate {
		if err := store.ensureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (s *SQLStore) cutoff() time.Time {
	return time.Now().Add(-s.ttl)
}

// GetExact returns the freshest non-expired entry for the normalized URL.
func (s *SQLStore) GetExact(ctx context.Context, normalizedURL string) (*Entry, error) {
	query := `
        SELECT id, url, normalized_url, url_hash, product_id, metadata, ts, hit_count
        FROM url_cache
        WHERE normalized_url = $1 AND ts > $2
        ORDER BY ts DESC
        LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, normalizedURL, s.cutoff())
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exact lookup: %w", err)
	}
	return entry, nil
}

// GetSimilar loads all non-expired entries and scores them in process; the
// similarity function has no SQL equivalent. Ties break toward the most
// recent timestamp via the scan order.
func (s *SQLStore) GetSimilar(ctx context.Context, rawURL string) (*Entry, float64, error) {
	query := `
        SELECT id, url, normalized_url, url_hash, product_id, metadata, ts, hit_count
        FROM url_cache
        WHERE ts > $1
        ORDER BY ts ASC`
	rows, err := s.db.QueryContext(ctx, query, s.cutoff())
	if err != nil {
		return nil, 0, fmt.Errorf("similarity scan: %w", err)
	}
	defer rows.Close()

	var best *Entry
	bestScore := 0.0
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		score := urlutil.Similarity(rawURL, entry.URL)
		if score < SimilarityThreshold {
			continue
		}
		// >= keeps the later (more recent) row on equal scores.
		if best == nil || score >= bestScore {
			best = entry
			bestScore = score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if best == nil {
		return nil, 0, nil
	}
	return best, bestScore, nil
}

// Put inserts a new row when ID is zero, otherwise updates by ID.
func (s *SQLStore) Put(ctx context.Context, e *Entry) error {
	if e.HitCount < 1 {
		e.HitCount = 1
	}
	e.Timestamp = time.Now()
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	write := func() error {
		if e.ID == 0 {
			query := `
                INSERT INTO url_cache (url, normalized_url, url_hash, product_id, metadata, ts, hit_count)
                VALUES ($1,$2,$3,$4,$5,$6,$7)
                RETURNING id`
			return s.db.QueryRowContext(ctx, query,
				e.URL, e.NormalizedURL, e.URLHash, e.ProductID, string(metadata), e.Timestamp, e.HitCount,
			).Scan(&e.ID)
		}
		query := `
            UPDATE url_cache
            SET url = $2, normalized_url = $3, url_hash = $4, product_id = $5,
                metadata = $6, ts = $7, hit_count = $8
            WHERE id = $1`
		_, err := s.db.ExecContext(ctx, query,
			e.ID, e.URL, e.NormalizedURL, e.URLHash, e.ProductID, string(metadata), e.Timestamp, e.HitCount,
		)
		return err
	}

	if err := write(); err != nil {
		if s.autoMigrate && isUndefinedTableErr(err) {
			if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
				return fmt.Errorf("ensure schema: %w", schemaErr)
			}
			if retryErr := write(); retryErr != nil {
				return fmt.Errorf("write cache entry: %w", retryErr)
			}
			return nil
		}
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// SweepExpired deletes up to maxBatch rows older than the TTL, oldest-biased.
func (s *SQLStore) SweepExpired(ctx context.Context, maxBatch int) (int, error) {
	if maxBatch <= 0 {
		return 0, nil
	}
	query := `
        DELETE FROM url_cache
        WHERE id IN (
            SELECT id FROM url_cache WHERE ts <= $1 ORDER BY ts ASC LIMIT $2
        )`
	res, err := s.db.ExecContext(ctx, query, s.cutoff(), maxBatch)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(deleted), nil
}

// Stats counts live and expired rows.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	query := `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE ts <= $1)
        FROM url_cache`
	if err := s.db.QueryRowContext(ctx, query, s.cutoff()).Scan(&stats.Entries, &stats.Expired); err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e            Entry
		productID    sql.NullString
		metadataJSON sql.NullString
	)
	if err := row.Scan(&e.ID, &e.URL, &e.NormalizedURL, &e.URLHash, &productID, &metadataJSON, &e.Timestamp, &e.HitCount); err != nil {
		return nil, err
	}
	e.ProductID = productID.String
	if metadataJSON.Valid && metadataJSON.String != "" {
		var meta types.Metadata
		if err := json.Unmarshal([]byte(metadataJSON.String), &meta); err == nil {
			e.Metadata = meta
		}
	}
	return &e, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || !s.autoMigrate {
		return nil
	}
	schemaCtx := ctx
	if schemaCtx == nil || schemaCtx.Err() != nil {
		schemaCtx = context.Background()
	}
	schemaCtx, cancel := context.WithTimeout(schemaCtx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS url_cache (
		    id BIGSERIAL PRIMARY KEY,
		    url TEXT NOT NULL,
		    normalized_url TEXT NOT NULL,
		    url_hash TEXT NOT NULL,
		    product_id TEXT,
		    metadata TEXT,
		    ts TIMESTAMPTZ NOT NULL,
		    hit_count INT NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_url_cache_normalized ON url_cache (normalized_url)`,
		`CREATE INDEX IF NOT EXISTS idx_url_cache_ts ON url_cache (ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func shouldAttemptCreateDatabase(driver string, err error) bool {
	if !strings.EqualFold(driver, "postgres") {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func createDatabase(ctx context.Context, cfg config.SQLConfig) error {
	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	parsed.Path = "/postgres"
	adminDB, err := sql.Open(cfg.Driver, parsed.String())
	if err != nil {
		return fmt.Errorf("connect admin database: %w", err)
	}
	defer adminDB.Close()
	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping admin database: %w", err)
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
