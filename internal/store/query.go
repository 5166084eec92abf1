package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Sentimentron/sentropy"
)

// InsertUserQuery records a new query request.
func (s *Store) InsertUserQuery(ctx context.Context, text, email string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_queries (text, email) VALUES ($1, $2) RETURNING id`, text, email).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert user query: %w", err)
	}
	return id, nil
}

// GetUserQuery loads a UserQuery by id.
func (s *Store) GetUserQuery(ctx context.Context, id int64) (*UserQuery, error) {
	q := &UserQuery{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT text, email, fulfilled, message, cancelled FROM user_queries WHERE id = $1`,
		id).Scan(&q.Text, &q.Email, &q.Fulfilled, &q.Message, &q.Cancelled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentropy.ErrNotFound
		}
		return nil, fmt.Errorf("store: get user query %d: %w", id, err)
	}
	return q, nil
}

// PendingUserQueries lists, in id order, queries not yet fulfilled and not
// cancelled. The query worker takes its work from the query-queue, not from
// this list.
func (s *Store) PendingUserQueries(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM user_queries WHERE fulfilled IS NULL AND NOT cancelled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list pending user queries: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan pending user query id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SetUserQueryFulfilled stamps a query as fulfilled at t (the presenter's
// presenter step).
func (s *Store) SetUserQueryFulfilled(ctx context.Context, id int64, t time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE user_queries SET fulfilled = $1 WHERE id = $2`, t, id)
	if err != nil {
		return fmt.Errorf("store: set user query %d fulfilled: %w", id, err)
	}
	return nil
}

// SetUserQueryMessage records a human-readable status/error message against
// a query, surfaced back to the requester.
func (s *Store) SetUserQueryMessage(ctx context.Context, id int64, message string) error {
	_, err := s.pool.Exec(ctx, `UPDATE user_queries SET message = $1 WHERE id = $2`, message, id)
	if err != nil {
		return fmt.Errorf("store: set user query %d message: %w", id, err)
	}
	return nil
}

// SetUserQueryCancelled marks a query as withdrawn; the executor skips it.
func (s *Store) SetUserQueryCancelled(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE user_queries SET cancelled = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: cancel user query %d: %w", id, err)
	}
	return nil
}
