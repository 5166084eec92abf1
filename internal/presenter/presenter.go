// Package presenter implements the result presenter: it normalizes a
// query.Result into the persisted JSON shape, writes it to object storage,
// marks the UserQuery fulfilled, and optionally emails the requester.
package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/notify"
	"github.com/Sentimentron/sentropy/internal/query"
	"github.com/Sentimentron/sentropy/internal/store"
)

// Store is the slice of *store.Store the presenter needs.
type Store interface {
	GetUserQuery(ctx context.Context, id int64) (*store.UserQuery, error)
	SetUserQueryFulfilled(ctx context.Context, id int64, t time.Time) error
	SetUserQueryMessage(ctx context.Context, id int64, message string) error
	SetUserQueryCancelled(ctx context.Context, id int64) error
}

// ObjectStore is the slice of objectstore.Store the presenter needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Presenter writes one query.Result for one UserQuery.
type Presenter struct {
	Store    Store
	Objects  ObjectStore
	Notifier notify.Notifier // nil disables the email step
	Bucket   string          // falls back to Config.ObjectStore.ResultBucket
}

func (p *Presenter) bucket() string {
	if p.Bucket != "" {
		return p.Bucket
	}
	return sentropy.Config.ObjectStore.ResultBucket
}

type resultDocument struct {
	DocumentID int64  `json:"document_id"`
	Date       int64  `json:"date"`
	Method     int    `json:"method"`
	Label      int    `json:"label"`
	Length     int    `json:"length"`
	Headline   string `json:"headline"`

	PosPhrases   int `json:"pos_phrases"`
	NegPhrases   int `json:"neg_phrases"`
	PosSentences int `json:"pos_sentences"`
	NegSentences int `json:"neg_sentences"`

	RelevantPositivePhrases int     `json:"relevant_positive_phrases"`
	RelevantNegativePhrases int     `json:"relevant_negative_phrases"`
	RelevantPhraseProbSum   float64 `json:"relevant_phrase_prob_sum"`
	RelevantPhraseCount     int     `json:"relevant_phrase_count"`
}

type resultDomain struct {
	DomainID       int64          `json:"domain_id"`
	DomainKey      string         `json:"domain_key"`
	LinkHistogram  map[string]int `json:"link_histogram"`
	OtherLinks     int            `json:"other_links"`
	CoveragePct    int            `json:"coverage_pct"`
	KeywordSamples []string       `json:"keyword_samples"`
}

type resultPayload struct {
	QueryText    string           `json:"query_text"`
	Messages     []string         `json:"messages"`
	UsedKeywords bool             `json:"used_keywords"`
	Documents    []resultDocument `json:"documents"`
	Domains      []resultDomain   `json:"domains"`
}

func buildPayload(queryText string, result *query.Result) resultPayload {
	docs := make([]resultDocument, 0, len(result.Documents))
	for _, d := range result.Documents {
		docs = append(docs, resultDocument{
			DocumentID:   d.DocumentID,
			Date:         d.Date.UnixMilli(),
			Method:       d.Method.Int(),
			Label:        d.Label,
			Length:       d.Length,
			Headline:     d.Headline,
			PosPhrases:   d.PosPhrases,
			NegPhrases:   d.NegPhrases,
			PosSentences: d.PosSentences,
			NegSentences: d.NegSentences,

			RelevantPositivePhrases: d.RelevantPositivePhrases,
			RelevantNegativePhrases: d.RelevantNegativePhrases,
			RelevantPhraseProbSum:   d.RelevantPhraseProbSum,
			RelevantPhraseCount:     d.RelevantPhraseCount,
		})
	}

	domains := make([]resultDomain, 0, len(result.Domains))
	for _, d := range result.Domains {
		domains = append(domains, resultDomain{
			DomainID:       d.DomainID,
			DomainKey:      d.DomainKey,
			LinkHistogram:  d.LinkHistogram,
			OtherLinks:     d.OtherLinks,
			CoveragePct:    d.CoveragePct,
			KeywordSamples: d.KeywordSamples,
		})
	}

	return resultPayload{
		QueryText:    queryText,
		Messages:     result.Messages,
		UsedKeywords: result.UsedKeywords,
		Documents:    docs,
		Domains:      domains,
	}
}

func resultKey(queryID int64) string {
	return fmt.Sprintf("results/%d", queryID)
}

// Present writes result for queryID: JSON to object storage, then
// UserQuery.fulfilled, then an optional completion email.
func (p *Presenter) Present(ctx context.Context, queryID int64, result *query.Result) error {
	uq, err := p.Store.GetUserQuery(ctx, queryID)
	if err != nil {
		return fmt.Errorf("presenter: load query %d: %w", queryID, err)
	}

	data, err := json.Marshal(buildPayload(uq.Text, result))
	if err != nil {
		return fmt.Errorf("presenter: marshal result for query %d: %w", queryID, err)
	}

	if err := p.Objects.Put(ctx, p.bucket(), resultKey(queryID), data, "application/json"); err != nil {
		return fmt.Errorf("presenter: write result for query %d: %w", queryID, err)
	}

	if err := p.Store.SetUserQueryFulfilled(ctx, queryID, time.Now()); err != nil {
		return fmt.Errorf("presenter: mark query %d fulfilled: %w", queryID, err)
	}

	if uq.Email == "" || p.Notifier == nil {
		return nil
	}
	subject := "Your sentropy query is ready"
	body := fmt.Sprintf("Your query %q returned %d document(s) across %d domain(s).",
		uq.Text, len(result.Documents), len(result.Domains))
	if err := p.Notifier.Send(ctx, uq.Email, subject, body); err != nil {
		return fmt.Errorf("presenter: notify %s for query %d: %w", uq.Email, queryID, err)
	}
	return nil
}

// Fail records a query-execution failure as a message on UserQuery, and
// also marks it cancelled when the failure was the caller's own context
// cancellation rather than a processing error.
func (p *Presenter) Fail(ctx context.Context, queryID int64, cause error) error {
	if err := p.Store.SetUserQueryMessage(ctx, queryID, cause.Error()); err != nil {
		return fmt.Errorf("presenter: set failure message for query %d: %w", queryID, err)
	}
	if errors.Is(cause, context.Canceled) {
		if err := p.Store.SetUserQueryCancelled(ctx, queryID); err != nil {
			return fmt.Errorf("presenter: cancel query %d: %w", queryID, err)
		}
	}
	return nil
}
