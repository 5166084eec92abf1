// Package store is sentropy's relational store: a thin jackc/pgx/v5 layer,
// one struct wrapping a connection pool plus typed, hand-written query
// functions per entity. Postgres rather than a wide-column store because
// the document commit needs multi-row transactions with rollback and a
// tunable isolation level.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sentimentron/sentropy"
)

// Store wraps a pgx connection pool and exposes the query/insert functions
// the rest of sentropy uses. NewStore should be used to create one.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool against Config.Database.DSN.
func NewStore(ctx context.Context) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(sentropy.Config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	cfg.MaxConns = sentropy.Config.Database.MaxConns

	connectTimeout, err := time.ParseDuration(sentropy.Config.Database.ConnectTimeout)
	if err != nil {
		// Shouldn't happen: checked in assertConfigInvariants.
		panic(err)
	}
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateSchema applies schemaDDL. It is idempotent so tests can call it
// freely against a scratch database; no CLI subcommand calls it, and it is
// not a substitute for real migration tooling (out of scope).
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	if err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// TxOptions controls the isolation level used by WithTx. Postgres treats
// READ UNCOMMITTED requests as READ COMMITTED, which is fine for every
// caller here.
type TxOptions struct {
	IsoLevel pgx.TxIsoLevel
}

// DefaultTxOptions uses READ COMMITTED, suitable for the pipeline's stage 13
// commit.
var DefaultTxOptions = TxOptions{IsoLevel: pgx.ReadCommitted}

// ReadUncommittedTxOptions requests READ UNCOMMITTED, for reads that can
// tolerate staleness. No caller in sentropy passes it to WithTx; the
// cache-warming scans and query-executor reads go through the pool directly.
var ReadUncommittedTxOptions = TxOptions{IsoLevel: pgx.ReadUncommitted}

// WithTx runs fn inside a transaction, committing on nil return and rolling
// back otherwise. This is the single place the commit stage's all-or-nothing
// guarantee is enforced.
func (s *Store) WithTx(ctx context.Context, opts TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: opts.IsoLevel})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			return fmt.Errorf("store: rollback after %v failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

// Pool exposes the underlying pool for packages (resolvers, query executor)
// that only ever issue simple reads and don't need transactional semantics.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
