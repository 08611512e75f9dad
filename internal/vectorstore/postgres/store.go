// Package postgres persists classified chunks in a Postgres table keyed by
// chunk id, with tenant and crawl-date columns for retention sweeps.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oenoai/ragcrawl/internal/chunker"
	"github.com/oenoai/ragcrawl/internal/ingest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultBatchSize = 50

// columnsPerRow is the number of bound parameters per upserted chunk.
const columnsPerRow = 13

// StoreConfig controls the Postgres connection pool used for chunk rows.
type StoreConfig struct {
	DSN string
	// Table is the chunk table name; defaults to "chunks".
	Table string
	// IDPrefix is the leading segment of chunk ids, used to recover the
	// tenant and crawl date for the row's retention columns.
	IDPrefix        string
	BatchSize       int
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes chunk rows into Postgres.
type Store struct {
	pool      execCloser
	table     string
	prefix    string
	batchSize int
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("vectorstore.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "chunks"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{
		pool:      pool,
		table:     table,
		prefix:    normalizePrefix(cfg.IDPrefix),
		batchSize: normalizeBatchSize(cfg.BatchSize),
	}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table, idPrefix string, batchSize int) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "chunks"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{
		pool:      pool,
		table:     table,
		prefix:    normalizePrefix(idPrefix),
		batchSize: normalizeBatchSize(batchSize),
	}, nil
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "web_crawl"
	}
	return prefix
}

func normalizeBatchSize(size int) int {
	if size <= 0 {
		return defaultBatchSize
	}
	return size
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Upsert writes chunks in batches. Rows whose id already exists are
// overwritten, so re-ingesting an unchanged site on the same day updates in
// place instead of duplicating.
func (s *Store) Upsert(ctx context.Context, chunks []ingest.Chunk) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("chunk store is not configured")
	}
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.upsertBatch(ctx, chunks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertBatch(ctx context.Context, batch []ingest.Chunk) error {
	var (
		placeholders []string
		args         []any
	)
	for i, chunk := range batch {
		if chunk.ID == "" {
			return fmt.Errorf("chunk %d has no id", i)
		}
		crawlDate, tenant, err := chunker.ParseChunkID(chunk.ID, s.prefix)
		if err != nil {
			return fmt.Errorf("chunk id %q: %w", chunk.ID, err)
		}
		base := i * columnsPerRow
		row := make([]string, columnsPerRow)
		for j := range row {
			row[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(row, ",")+")")
		args = append(args,
			chunk.ID,
			tenant,
			crawlDate,
			chunk.SourceURL,
			chunk.SourceDomain,
			chunk.SourcePath,
			chunk.Index,
			chunk.Total,
			chunk.TokenCount,
			chunk.Keywords,
			chunk.Summary,
			chunk.Document(),
			chunk.Hash,
		)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	tenant_id,
	crawl_date,
	source_url,
	source_domain,
	source_path,
	chunk_index,
	total_chunks,
	token_count,
	keywords,
	summary,
	document,
	content_hash
) VALUES %s
ON CONFLICT (id) DO UPDATE SET
	source_url = EXCLUDED.source_url,
	source_domain = EXCLUDED.source_domain,
	source_path = EXCLUDED.source_path,
	chunk_index = EXCLUDED.chunk_index,
	total_chunks = EXCLUDED.total_chunks,
	token_count = EXCLUDED.token_count,
	keywords = EXCLUDED.keywords,
	summary = EXCLUDED.summary,
	document = EXCLUDED.document,
	content_hash = EXCLUDED.content_hash`, s.table, strings.Join(placeholders, ","))

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes the tenant's rows whose crawl date precedes cutoff
// and reports how many were removed.
func (s *Store) PurgeOlderThan(ctx context.Context, tenant string, cutoff time.Time) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("chunk store is not configured")
	}
	if tenant == "" {
		return 0, fmt.Errorf("tenant is required")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND crawl_date < $2`, s.table)
	tag, err := s.pool.Exec(ctx, query, tenant, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}
