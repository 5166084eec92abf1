// Package transfer implements the crawl transfer worker: it drains the
// crawl-queue of CrawlFile ids, fetches each file's backing object, iterates
// its embedded records, and hands each one off to the process-queue as a
// freshly-minted RawArticle — the bridge between the archive-queue and the
// Processing Pipeline.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/archive"
	"github.com/Sentimentron/sentropy/internal/queue"
	"github.com/Sentimentron/sentropy/internal/store"
)

// crawlFileStore is the slice of *store.Store the worker needs.
type crawlFileStore interface {
	GetCrawlFile(ctx context.Context, id int64) (*store.CrawlFile, error)
	SetCrawlFileStatus(ctx context.Context, id int64, status sentropy.CrawlFileStatus) error
	FindRawArticle(ctx context.Context, crawlFileID int64, url string, dateCrawled time.Time) (int64, error)
	InsertRawArticle(ctx context.Context, crawlFileID int64, url, contentType string, dateCrawled time.Time, headers map[string]string, body []byte) (int64, error)
}

// objectFetcher is the slice of objectstore.Store the worker needs.
type objectFetcher interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// archiveOpener lets tests substitute a fake archive reader for
// archive.FetchAndOpen.
type archiveOpener func(data []byte) (archive.Reader, func(), error)

// Worker drains the crawl-queue, one CrawlFile at a time.
type Worker struct {
	Store   crawlFileStore
	Objects objectFetcher
	Queue   queue.Queue

	// Bucket is the object-store bucket CrawlFile.object_key is relative
	// to.
	Bucket string

	openArchive archiveOpener
}

// NewWorker builds a Worker wired to concrete collaborators.
func NewWorker(s crawlFileStore, objects objectFetcher, q queue.Queue, bucket string) *Worker {
	return &Worker{
		Store:       s,
		Objects:     objects,
		Queue:       q,
		Bucket:      bucket,
		openArchive: archive.FetchAndOpen,
	}
}

// Run consumes a single message off the crawl-queue and transfers its
// CrawlFile, acking on success and nacking on any error so the queue
// redelivers it.
func (w *Worker) Run(ctx context.Context) error {
	msg, err := w.Queue.Consume(ctx, sentropy.Config.Queue.CrawlQueueName)
	if err != nil {
		return fmt.Errorf("transfer: consume crawl-queue: %w", err)
	}

	if err := w.transferOne(ctx, msg.ID()); err != nil {
		msg.Nak()
		return fmt.Errorf("transfer: crawl file %d: %w", msg.ID(), err)
	}
	return msg.Ack()
}

// transferOne transfers one CrawlFile's records end to end.
func (w *Worker) transferOne(ctx context.Context, crawlFileID int64) error {
	cf, err := w.Store.GetCrawlFile(ctx, crawlFileID)
	if err != nil {
		return fmt.Errorf("load crawl file: %w", err)
	}

	data, err := w.Objects.Get(ctx, w.Bucket, cf.ObjectKey)
	if err != nil {
		return fmt.Errorf("fetch object %q: %w", cf.ObjectKey, err)
	}

	opener := w.openArchive
	if opener == nil {
		opener = archive.FetchAndOpen
	}
	reader, cleanup, err := opener(data)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer cleanup()

	for {
		rec, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read record: %w", err)
		}
		if rec == nil {
			break
		}

		if err := w.transferRecord(ctx, crawlFileID, rec); err != nil {
			return fmt.Errorf("transfer record %q: %w", rec.URL, err)
		}
	}

	return w.Store.SetCrawlFileStatus(ctx, crawlFileID, sentropy.CrawlComplete)
}

// transferRecord handles one record: dedup lookup, insert, enqueue.
func (w *Worker) transferRecord(ctx context.Context, crawlFileID int64, rec *archive.Record) error {
	if _, err := w.Store.FindRawArticle(ctx, crawlFileID, rec.URL, rec.DateCrawled); err == nil {
		return nil
	} else if !errors.Is(err, sentropy.ErrNotFound) {
		return fmt.Errorf("dedup lookup: %w", err)
	}

	id, err := w.Store.InsertRawArticle(ctx, crawlFileID, rec.URL, rec.ContentType, rec.DateCrawled, rec.Headers, rec.Body)
	if err != nil {
		return fmt.Errorf("insert raw article: %w", err)
	}

	if err := w.Queue.Publish(ctx, sentropy.Config.Queue.ProcessQueueName, id); err != nil {
		return fmt.Errorf("publish raw article %d: %w", id, err)
	}
	return nil
}
