package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Sentimentron/sentropy"
)

// GetDomainByKey looks up a Domain row by its key. Returns sentropy.ErrNotFound
// if absent.
func (s *Store) GetDomainByKey(ctx context.Context, key string) (*Domain, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, key, first_seen FROM domains WHERE key = $1`, key)
	d := &Domain{}
	if err := row.Scan(&d.ID, &d.Key, &d.FirstSeen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentropy.ErrNotFound
		}
		return nil, fmt.Errorf("store: get domain %q: %w", key, err)
	}
	return d, nil
}

// GetDomainByID loads a Domain by id.
func (s *Store) GetDomainByID(ctx context.Context, id int64) (*Domain, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, key, first_seen FROM domains WHERE id = $1`, id)
	d := &Domain{}
	if err := row.Scan(&d.ID, &d.Key, &d.FirstSeen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentropy.ErrNotFound
		}
		return nil, fmt.Errorf("store: get domain %d: %w", id, err)
	}
	return d, nil
}

// InsertDomainIgnore inserts (key, now) if absent, doing nothing if another
// writer won the race, then always returns the id that's visible afterward.
// Row uniqueness is the only mutual exclusion here; there is no
// application-level lock.
func (s *Store) InsertDomainIgnore(ctx context.Context, key string) (int64, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO domains (key, first_seen) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		key, time.Now())
	if err != nil {
		return 0, fmt.Errorf("store: insert domain %q: %w", key, err)
	}

	d, err := s.GetDomainByKey(ctx, key)
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

// DomainsByPattern returns all Domain keys matching a SQL LIKE glob, used by
// the DomainByPattern resolver.
func (s *Store) DomainsByPattern(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM domains WHERE key LIKE $1`, pattern)
	if err != nil {
		return nil, fmt.Errorf("store: domains by pattern %q: %w", pattern, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("store: scan domain pattern row: %w", err)
		}
		out = append(out, key)
	}
	return out, rows.Err()
}
