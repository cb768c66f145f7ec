package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresKeywordSearcher performs full-text keyword search over the chunks
// table, producing the keyword-relevance candidate list for fusion. Chunk
// ingestion maintains the table and its tsvector column; this side only reads.
type PostgresKeywordSearcher struct {
	pool *pgxpool.Pool
}

// NewPostgresKeywordSearcher creates a keyword searcher backed by a pgx pool.
func NewPostgresKeywordSearcher(ctx context.Context, databaseURL string) (*PostgresKeywordSearcher, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresKeywordSearcher{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresKeywordSearcher) Close() {
	s.pool.Close()
}

// SearchKeywords ranks chunks by ts_rank_cd against the query text. The
// metadata filter is evaluated in-process after scanning; rows are fetched
// with headroom so filtering rarely starves the limit.
func (s *PostgresKeywordSearcher) SearchKeywords(ctx context.Context, query string, filter Filter, limit int) ([]Candidate, error) {
	fetchLimit := limit
	if filter != nil {
		fetchLimit = limit * 3
	}

	sql := `
		SELECT id, content, metadata, ts_rank_cd(tsv, websearch_to_tsquery('english', $1)) AS rank
		FROM chunks
		WHERE tsv @@ websearch_to_tsquery('english', $1)
		ORDER BY rank DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, sql, query, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to run keyword search: %w", err)
	}
	defer rows.Close()

	candidates := make([]Candidate, 0, limit)
	for rows.Next() {
		var (
			id           string
			content      string
			metadataJSON []byte
			rank         float64
		)
		if err := rows.Scan(&id, &content, &metadataJSON, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan keyword result: %w", err)
		}

		metadata := make(map[string]string)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
			}
		}

		if filter != nil && !filter.Matches(metadata) {
			continue
		}

		candidates = append(candidates, Candidate{
			ID:       id,
			Text:     content,
			Score:    rank,
			Kind:     SourceKeyword,
			Metadata: metadata,
		})
		if len(candidates) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keyword results: %w", err)
	}

	return candidates, nil
}

// Ensure PostgresKeywordSearcher implements KeywordSearcher.
var _ KeywordSearcher = (*PostgresKeywordSearcher)(nil)
