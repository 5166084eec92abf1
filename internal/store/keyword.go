package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Sentimentron/sentropy"
)

// GetKeywordByWord returns the id for word, or sentropy.ErrNotFound.
func (s *Store) GetKeywordByWord(ctx context.Context, word string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM keywords WHERE word = $1`, word).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, sentropy.ErrNotFound
		}
		return 0, fmt.Errorf("store: get keyword %q: %w", word, err)
	}
	return id, nil
}

// UpsertKeywords batch-inserts any of words not already present (stage 11's
// "batch-upsert all unique words") and returns word->id for every one of
// them, whether newly inserted or pre-existing.
func (s *Store) UpsertKeywords(ctx context.Context, words []string) (map[string]int64, error) {
	out := make(map[string]int64, len(words))
	if len(words) == 0 {
		return out, nil
	}

	batch := &pgx.Batch{}
	for _, w := range words {
		batch.Queue(`INSERT INTO keywords (word) VALUES ($1) ON CONFLICT (word) DO NOTHING`, w)
	}
	br := s.pool.SendBatch(ctx, batch)
	for range words {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return nil, fmt.Errorf("store: upsert keywords: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("store: close keyword upsert batch: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT id, word FROM keywords WHERE word = ANY($1)`, words)
	if err != nil {
		return nil, fmt.Errorf("store: resolve upserted keywords: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var word string
		if err := rows.Scan(&id, &word); err != nil {
			return nil, fmt.Errorf("store: scan keyword: %w", err)
		}
		out[word] = id
	}
	return out, rows.Err()
}

// KeywordsByPattern returns all Keyword.word values matching a SQL LIKE
// glob, used by the KeywordByPattern resolver.
func (s *Store) KeywordsByPattern(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT word FROM keywords WHERE word LIKE $1`, pattern)
	if err != nil {
		return nil, fmt.Errorf("store: keywords by pattern %q: %w", pattern, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, fmt.Errorf("store: scan keyword pattern row: %w", err)
		}
		out = append(out, word)
	}
	return out, rows.Err()
}
