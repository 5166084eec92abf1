package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sentimentron/sentropy"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, letting the small set
// of functions called both inside and outside a transaction share one
// implementation. queryable returns tx when non-nil (the pipeline's
// transactional writes), otherwise the pool (standalone reads/writes).
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func queryable(tx pgx.Tx, s *Store) dbtx {
	if tx != nil {
		return tx
	}
	return s.pool
}

// GetOrCreateCrawlSource resolves a source key to an id, creating the row if
// absent.
func (s *Store) GetOrCreateCrawlSource(ctx context.Context, key string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM crawl_sources WHERE key = $1`, key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("store: get crawl source %q: %w", key, err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO crawl_sources (key) VALUES ($1) ON CONFLICT (key) DO UPDATE SET key = EXCLUDED.key RETURNING id`,
		key).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: create crawl source %q: %w", key, err)
	}
	return id, nil
}

// InsertCrawlFile registers a new CrawlFile, status Incomplete.
func (s *Store) InsertCrawlFile(ctx context.Context, sourceID int64, objectKey string, kind sentropy.CrawlFileKind) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO crawl_files (source_id, object_key, kind, status) VALUES ($1, $2, $3, $4) RETURNING id`,
		sourceID, objectKey, int(kind), int(sentropy.CrawlIncomplete)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert crawl file %q: %w", objectKey, err)
	}
	return id, nil
}

// GetCrawlFile loads a CrawlFile by id.
func (s *Store) GetCrawlFile(ctx context.Context, id int64) (*CrawlFile, error) {
	cf := &CrawlFile{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT source_id, object_key, kind, status FROM crawl_files WHERE id = $1`, id).
		Scan(&cf.SourceID, &cf.ObjectKey, &cf.Kind, &cf.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentropy.ErrNotFound
		}
		return nil, fmt.Errorf("store: get crawl file %d: %w", id, err)
	}
	return cf, nil
}

// SetCrawlFileStatus updates a CrawlFile's status (e.g. to Complete once
// Crawl Transfer finishes iterating it).
func (s *Store) SetCrawlFileStatus(ctx context.Context, id int64, status sentropy.CrawlFileStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE crawl_files SET status = $1 WHERE id = $2`, int(status), id)
	if err != nil {
		return fmt.Errorf("store: set crawl file %d status: %w", id, err)
	}
	return nil
}

// FindRawArticle is the transfer worker's dedup lookup: if a RawArticle
// already exists for (crawl_file, url, date_crawled), return its id.
func (s *Store) FindRawArticle(ctx context.Context, crawlFileID int64, url string, dateCrawled time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM raw_articles WHERE crawl_file_id = $1 AND url = $2 AND date_crawled = $3`,
		crawlFileID, url, dateCrawled).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, sentropy.ErrNotFound
		}
		return 0, fmt.Errorf("store: find raw article: %w", err)
	}
	return id, nil
}

// InsertRawArticle inserts a new RawArticle row and a matching
// RawArticleResult(Unprocessed) row.
func (s *Store) InsertRawArticle(ctx context.Context, crawlFileID int64, url, contentType string, dateCrawled time.Time, headers map[string]string, body []byte) (int64, error) {
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return 0, fmt.Errorf("store: marshal headers: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO raw_articles (crawl_file_id, url, content_type, date_crawled, headers, body)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		crawlFileID, url, contentType, dateCrawled, headerJSON, body).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert raw article %q: %w", url, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO raw_article_results (raw_article_id, status) VALUES ($1, $2)`,
		id, int(sentropy.RawUnprocessed))
	if err != nil {
		return 0, fmt.Errorf("store: insert raw article result %d: %w", id, err)
	}
	return id, nil
}

// GetRawArticle loads a RawArticle by id.
func (s *Store) GetRawArticle(ctx context.Context, id int64) (*RawArticle, error) {
	ra := &RawArticle{ID: id}
	var headerJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT crawl_file_id, url, content_type, date_crawled, headers, body FROM raw_articles WHERE id = $1`,
		id).Scan(&ra.CrawlFileID, &ra.URL, &ra.ContentType, &ra.DateCrawled, &headerJSON, &ra.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentropy.ErrNotFound
		}
		return nil, fmt.Errorf("store: get raw article %d: %w", id, err)
	}
	if err := json.Unmarshal(headerJSON, &ra.Headers); err != nil {
		return nil, fmt.Errorf("store: unmarshal headers for raw article %d: %w", id, err)
	}
	return ra, nil
}

// GetRawArticleResult returns the RawArticleResult for id, or
// sentropy.ErrNotFound if the raw article was never seen (shouldn't happen
// given InsertRawArticle always creates one, but a defensive lookup keeps the
// idempotence check in the pipeline explicit).
func (s *Store) GetRawArticleResult(ctx context.Context, rawArticleID int64) (*RawArticleResult, error) {
	r := &RawArticleResult{RawArticleID: rawArticleID}
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM raw_article_results WHERE raw_article_id = $1`, rawArticleID).Scan(&r.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentropy.ErrNotFound
		}
		return nil, fmt.Errorf("store: get raw article result %d: %w", rawArticleID, err)
	}
	return r, nil
}

// SetRawArticleResultStatus transitions a RawArticleResult. The transition
// is terminal: callers must only invoke this once per raw article, guarded
// by the pipeline's Unprocessed pre-check.
func (s *Store) SetRawArticleResultStatus(ctx context.Context, tx pgx.Tx, rawArticleID int64, status sentropy.RawArticleStatus) error {
	exec := queryable(tx, s)
	_, err := exec.Exec(ctx,
		`UPDATE raw_article_results SET status = $1 WHERE raw_article_id = $2`,
		int(status), rawArticleID)
	if err != nil {
		return fmt.Errorf("store: set raw article result %d status: %w", rawArticleID, err)
	}
	return nil
}

// InsertRawArticleResultLink joins a processed RawArticle to its Article.
func (s *Store) InsertRawArticleResultLink(ctx context.Context, tx pgx.Tx, rawArticleID, articleID int64) error {
	exec := queryable(tx, s)
	_, err := exec.Exec(ctx,
		`INSERT INTO raw_article_result_links (raw_article_id, article_id) VALUES ($1, $2)`,
		rawArticleID, articleID)
	if err != nil {
		return fmt.Errorf("store: insert raw article result link: %w", err)
	}
	return nil
}

// UnprocessedRawArticleIDs lists every RawArticle whose result is still
// Unprocessed, for the `reprocess` CLI subcommand.
func (s *Store) UnprocessedRawArticleIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT raw_article_id FROM raw_article_results WHERE status = $1`, int(sentropy.RawUnprocessed))
	if err != nil {
		return nil, fmt.Errorf("store: list unprocessed raw articles: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan unprocessed raw article id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
