package transfer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/archive"
	"github.com/Sentimentron/sentropy/internal/queue"
	"github.com/Sentimentron/sentropy/internal/store"
)

type fakeStore struct {
	files      map[int64]*store.CrawlFile
	raw        map[string]int64
	inserted   []string
	statusSet  sentropy.CrawlFileStatus
	statusCall int
}

func (f *fakeStore) GetCrawlFile(ctx context.Context, id int64) (*store.CrawlFile, error) {
	cf, ok := f.files[id]
	if !ok {
		return nil, sentropy.ErrNotFound
	}
	return cf, nil
}

func (f *fakeStore) SetCrawlFileStatus(ctx context.Context, id int64, status sentropy.CrawlFileStatus) error {
	f.statusSet = status
	f.statusCall++
	return nil
}

func (f *fakeStore) FindRawArticle(ctx context.Context, crawlFileID int64, url string, dateCrawled time.Time) (int64, error) {
	id, ok := f.raw[url]
	if !ok {
		return 0, sentropy.ErrNotFound
	}
	return id, nil
}

func (f *fakeStore) InsertRawArticle(ctx context.Context, crawlFileID int64, url, contentType string, dateCrawled time.Time, headers map[string]string, body []byte) (int64, error) {
	f.inserted = append(f.inserted, url)
	id := int64(len(f.inserted))
	if f.raw == nil {
		f.raw = map[string]int64{}
	}
	f.raw[url] = id
	return id, nil
}

type fakeObjects struct {
	data map[string][]byte
}

func (f *fakeObjects) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	return f.data[key], nil
}

type fakeReader struct {
	records []archive.Record
	pos     int
	closed  bool
}

func (r *fakeReader) Next() (*archive.Record, error) {
	if r.pos >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.pos]
	r.pos++
	return &rec, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func fakeOpener(records []archive.Record) (archiveOpener, *fakeReader) {
	r := &fakeReader{records: records}
	return func(data []byte) (archive.Reader, func(), error) {
		return r, func() {}, nil
	}, r
}

type fakeQueue struct {
	published []int64
	toConsume queue.Message
}

func (q *fakeQueue) Publish(ctx context.Context, subject string, id int64) error {
	q.published = append(q.published, id)
	return nil
}

func (q *fakeQueue) Consume(ctx context.Context, subject string) (queue.Message, error) {
	return q.toConsume, nil
}

func (q *fakeQueue) Close() error { return nil }

type fakeMessage struct {
	id     int64
	acked  bool
	nacked bool
}

func (m *fakeMessage) ID() int64  { return m.id }
func (m *fakeMessage) Ack() error { m.acked = true; return nil }
func (m *fakeMessage) Nak() error { m.nacked = true; return nil }

func TestRunTransfersNewRecordsAndMarksCrawlFileComplete(t *testing.T) {
	fs := &fakeStore{files: map[int64]*store.CrawlFile{
		1: {ID: 1, ObjectKey: "crawl-1.xz"},
	}}
	fo := &fakeObjects{data: map[string][]byte{"crawl-1.xz": []byte("irrelevant")}}
	opener, _ := fakeOpener([]archive.Record{
		{URL: "http://example.com/a", ContentType: "text/html", DateCrawled: time.Now()},
		{URL: "http://example.com/b", ContentType: "text/html", DateCrawled: time.Now()},
	})
	msg := &fakeMessage{id: 1}
	q := &fakeQueue{toConsume: msg}

	w := NewWorker(fs, fo, q, "crawl-bucket")
	w.openArchive = opener

	err := w.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, msg.acked)
	assert.False(t, msg.nacked)
	assert.Equal(t, sentropy.CrawlComplete, fs.statusSet)
	assert.ElementsMatch(t, []string{"http://example.com/a", "http://example.com/b"}, fs.inserted)
	assert.Len(t, q.published, 2)
}

func TestRunSkipsAlreadyTransferredRecords(t *testing.T) {
	fs := &fakeStore{
		files: map[int64]*store.CrawlFile{1: {ID: 1, ObjectKey: "crawl-1.xz"}},
		raw:   map[string]int64{"http://example.com/a": 99},
	}
	fo := &fakeObjects{data: map[string][]byte{"crawl-1.xz": []byte("irrelevant")}}
	opener, _ := fakeOpener([]archive.Record{
		{URL: "http://example.com/a", ContentType: "text/html", DateCrawled: time.Now()},
	})
	msg := &fakeMessage{id: 1}
	q := &fakeQueue{toConsume: msg}

	w := NewWorker(fs, fo, q, "crawl-bucket")
	w.openArchive = opener

	err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, fs.inserted)
	assert.Empty(t, q.published)
	assert.True(t, msg.acked)
}

func TestRunNacksOnMissingCrawlFile(t *testing.T) {
	fs := &fakeStore{files: map[int64]*store.CrawlFile{}}
	fo := &fakeObjects{data: map[string][]byte{}}
	msg := &fakeMessage{id: 404}
	q := &fakeQueue{toConsume: msg}

	w := NewWorker(fs, fo, q, "crawl-bucket")

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.True(t, msg.nacked)
	assert.False(t, msg.acked)
}
