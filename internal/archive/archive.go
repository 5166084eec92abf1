// Package archive reads crawl-file archives. It is intentionally thin: xz
// decompression is delegated entirely to ulikunitz/xz, and the row format
// is treated as an opaque newline-delimited encoding behind the Reader
// interface rather than a hand-rolled binary parser.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ulikunitz/xz"
)

// Record is one row Crawl Transfer consumes: a raw HTTP response plus the
// crawl metadata recorded alongside it.
type Record struct {
	URL         string            `json:"url"`
	ContentType string            `json:"content_type"`
	DateCrawled time.Time         `json:"date_crawled"`
	Headers     map[string]string `json:"headers"`
	Body        []byte            `json:"body"`
}

// Reader iterates the records embedded in one CrawlFile. Next returns
// io.EOF once exhausted.
type Reader interface {
	Next() (*Record, error)
	Close() error
}

// seqReader reads newline-delimited JSON records off a decompressed
// stream — sentropy's embedded sequence store format.
type seqReader struct {
	dec  *json.Decoder
	file *os.File
}

func (r *seqReader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *seqReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Open decompresses the xz-compressed CrawlFile at path and opens it as an
// embedded sequence store ready for Next() iteration.
func Open(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}

	xr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: xz reader for %s: %w", path, err)
	}

	return &seqReader{dec: json.NewDecoder(xr), file: f}, nil
}

// FetchAndOpen writes data (the xz-compressed bytes already fetched from
// object storage) to a temporary file and opens it as a Reader. The
// returned cleanup func removes the temporary file and must be called once
// iteration finishes.
func FetchAndOpen(data []byte) (reader Reader, cleanup func(), err error) {
	tmp, err := os.CreateTemp("", "sentropy-crawlfile-*.xz")
	if err != nil {
		return nil, nil, fmt.Errorf("archive: create temp sink: %w", err)
	}

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, nil, fmt.Errorf("archive: write temp sink: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, nil, fmt.Errorf("archive: close temp sink: %w", err)
	}

	r, err := Open(tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return nil, nil, err
	}

	cleanup = func() {
		r.Close()
		os.Remove(tmp.Name())
	}
	return r, cleanup, nil
}
