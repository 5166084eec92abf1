package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Sentimentron/sentropy"
)

// FindArticle implements stage 1's pre-check: "no existing Article for
// (crawl, domain, path)". Returns sentropy.ErrNotFound if none exists.
func (s *Store) FindArticle(ctx context.Context, domainID, crawlFileID int64, path string) (*Article, error) {
	a := &Article{DomainID: domainID, Path: path, CrawlFileID: crawlFileID}
	err := s.pool.QueryRow(ctx,
		`SELECT id, date_crawled, status FROM articles WHERE domain_id = $1 AND path = $2 AND crawl_file_id = $3`,
		domainID, path, crawlFileID).Scan(&a.ID, &a.DateCrawled, &a.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentropy.ErrNotFound
		}
		return nil, fmt.Errorf("store: find article: %w", err)
	}
	return a, nil
}

// InsertArticle creates an Article row inside tx, used by stage 13's atomic
// commit (or as part of an early-terminal stage that must still record a
// status, e.g. UnsupportedType).
func (s *Store) InsertArticle(ctx context.Context, tx pgx.Tx, domainID, crawlFileID int64, path string, dateCrawled time.Time, status sentropy.ArticleStatus) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO articles (domain_id, path, date_crawled, crawl_file_id, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		domainID, path, dateCrawled, crawlFileID, int(status)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert article: %w", err)
	}
	return id, nil
}

// SetArticleStatus updates an already-inserted Article's terminal status.
func (s *Store) SetArticleStatus(ctx context.Context, tx pgx.Tx, articleID int64, status sentropy.ArticleStatus) error {
	exec := queryable(tx, s)
	_, err := exec.Exec(ctx, `UPDATE articles SET status = $1 WHERE id = $2`, int(status), articleID)
	if err != nil {
		return fmt.Errorf("store: set article %d status: %w", articleID, err)
	}
	return nil
}

// GetArticle loads an Article by id.
func (s *Store) GetArticle(ctx context.Context, id int64) (*Article, error) {
	a := &Article{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT domain_id, path, date_crawled, crawl_file_id, status FROM articles WHERE id = $1`,
		id).Scan(&a.DomainID, &a.Path, &a.DateCrawled, &a.CrawlFileID, &a.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentropy.ErrNotFound
		}
		return nil, fmt.Errorf("store: get article %d: %w", id, err)
	}
	return a, nil
}

// ArticlePathsForDomain returns every known article path for a domain, used
// by the query executor's coverage calculation.
func (s *Store) ArticlePathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT path FROM articles WHERE domain_id = $1`, domainID)
	if err != nil {
		return nil, fmt.Errorf("store: article paths for domain %d: %w", domainID, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("store: scan article path: %w", err)
		}
		out[path] = true
	}
	return out, rows.Err()
}
