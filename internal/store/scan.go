package store

import (
	"context"
	"fmt"
)

// scanBatchSize bounds each page of the cache-warming full-table scans so
// the `cache-keywords`/`cache-domains` subcommands never hold millions of
// rows in one result set.
const scanBatchSize = 5000

// ScanKeywords walks the whole keywords table in id order, invoking fn once
// per row. Used by the cache-keywords CLI subcommand's one-shot warm scan.
func (s *Store) ScanKeywords(ctx context.Context, fn func(word string, id int64) error) error {
	var cursor int64
	for {
		rows, err := s.pool.Query(ctx,
			`SELECT id, word FROM keywords WHERE id > $1 ORDER BY id LIMIT $2`,
			cursor, scanBatchSize)
		if err != nil {
			return fmt.Errorf("store: scan keywords after %d: %w", cursor, err)
		}

		n := 0
		for rows.Next() {
			var id int64
			var word string
			if err := rows.Scan(&id, &word); err != nil {
				rows.Close()
				return fmt.Errorf("store: scan keyword row: %w", err)
			}
			if err := fn(word, id); err != nil {
				rows.Close()
				return err
			}
			cursor = id
			n++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("store: scan keywords: %w", err)
		}
		if n < scanBatchSize {
			return nil
		}
	}
}

// ScanDomains walks the whole domains table in id order, invoking fn once
// per row. Used by the cache-domains CLI subcommand's one-shot warm scan.
func (s *Store) ScanDomains(ctx context.Context, fn func(key string, id int64) error) error {
	var cursor int64
	for {
		rows, err := s.pool.Query(ctx,
			`SELECT id, key FROM domains WHERE id > $1 ORDER BY id LIMIT $2`,
			cursor, scanBatchSize)
		if err != nil {
			return fmt.Errorf("store: scan domains after %d: %w", cursor, err)
		}

		n := 0
		for rows.Next() {
			var id int64
			var key string
			if err := rows.Scan(&id, &key); err != nil {
				rows.Close()
				return fmt.Errorf("store: scan domain row: %w", err)
			}
			if err := fn(key, id); err != nil {
				rows.Close()
				return err
			}
			cursor = id
			n++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("store: scan domains: %w", err)
		}
		if n < scanBatchSize {
			return nil
		}
	}
}
