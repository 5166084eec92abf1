// Package textextractor is the client for the boilerplate-removal HTTP
// service. It is a thin stdlib net/http client; nothing improves on
// net/http and encoding/xml for a single POST-then-parse call.
package textextractor

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sentimentron/sentropy"
)

// ErrExtractionFailed is returned when the service responds with
// <ExtractionFailureResponse/> — stage 4a's "non-empty response" gate
// fails and the pipeline sets Article.status = NoContent.
var ErrExtractionFailed = errors.New("textextractor: extraction failed")

// responseEnvelope models the wire contract's two possible response shapes:
// either an empty ExtractionFailureResponse, or a Response wrapping the
// cleaned text.
type responseEnvelope struct {
	XMLName xml.Name `xml:"Response"`
	Text    string   `xml:",chardata"`
}

type failureEnvelope struct {
	XMLName xml.Name `xml:"ExtractionFailureResponse"`
}

type serverInfoEnvelope struct {
	XMLName xml.Name `xml:"ServerInfo"`
	Version string   `xml:"Version"`
}

// Client talks to the text-extractor over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient builds a Client against Config.TextExtractor.URL, with a
// request timeout from Config.TextExtractor.Timeout.
func NewClient() (*Client, error) {
	timeout, err := time.ParseDuration(sentropy.Config.TextExtractor.Timeout)
	if err != nil {
		return nil, fmt.Errorf("textextractor: parse timeout: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        sentropy.Config.TextExtractor.URL,
	}, nil
}

// Extract posts body to the text-extractor and returns the cleaned,
// ASCII-encoded text plus the server's reported version string ("the
// returned text is encoded as ASCII, ignoring non-representable
// characters"). Returns ErrExtractionFailed on an
// ExtractionFailureResponse.
func (c *Client) Extract(ctx context.Context, body []byte) (text string, version string, err error) {
	form := url.Values{}
	form.Set("charset", "UTF-8")
	form.Set("content", string(body))
	form.Set("method", "default")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("textextractor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("textextractor: request: %w", err)
	}
	defer resp.Body.Close()

	dec := xml.NewDecoder(resp.Body)
	var serverInfo serverInfoEnvelope
	var response responseEnvelope
	var failure failureEnvelope
	sawFailure := false
	sawResponse := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "ServerInfo":
			if err := dec.DecodeElement(&serverInfo, &start); err != nil {
				return "", "", fmt.Errorf("textextractor: decode ServerInfo: %w", err)
			}
		case "ExtractionFailureResponse":
			if err := dec.DecodeElement(&failure, &start); err != nil {
				return "", "", fmt.Errorf("textextractor: decode ExtractionFailureResponse: %w", err)
			}
			sawFailure = true
		case "Response":
			if err := dec.DecodeElement(&response, &start); err != nil {
				return "", "", fmt.Errorf("textextractor: decode Response: %w", err)
			}
			sawResponse = true
		}
	}

	if sawFailure || !sawResponse {
		return "", serverInfo.Version, ErrExtractionFailed
	}

	return toASCII(response.Text), serverInfo.Version, nil
}

// toASCII drops every rune outside the printable ASCII range, matching the
// wire contract's "encoded as ASCII, ignoring non-representable
// characters".
func toASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x20 && r <= 0x7E || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
