// Package pipeline implements the processing pipeline: the 13-stage
// enrichment that turns one RawArticle into a persisted Document graph (or
// a terminal Article.status, or a committed RawArticleResult(Error)).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/classifier"
	"github.com/Sentimentron/sentropy/internal/htmlx"
	"github.com/Sentimentron/sentropy/internal/linguistics"
	"github.com/Sentimentron/sentropy/internal/store"
	"github.com/Sentimentron/sentropy/internal/urlx"
)

// pipelineStore is the slice of *store.Store the pipeline needs.
type pipelineStore interface {
	GetRawArticleResult(ctx context.Context, rawArticleID int64) (*store.RawArticleResult, error)
	GetRawArticle(ctx context.Context, id int64) (*store.RawArticle, error)
	SetRawArticleResultStatus(ctx context.Context, tx pgx.Tx, rawArticleID int64, status sentropy.RawArticleStatus) error
	FindArticle(ctx context.Context, domainID, crawlFileID int64, path string) (*store.Article, error)
	InsertArticle(ctx context.Context, tx pgx.Tx, domainID, crawlFileID int64, path string, dateCrawled time.Time, status sentropy.ArticleStatus) (int64, error)
	InsertRawArticleResultLink(ctx context.Context, tx pgx.Tx, rawArticleID, articleID int64) error
	InsertDocumentGraph(ctx context.Context, tx pgx.Tx, w store.DocumentWrite) (int64, error)
	WithTx(ctx context.Context, opts store.TxOptions, fn func(tx pgx.Tx) error) error
}

// domainResolver is *domainresolve.Resolver's public surface.
type domainResolver interface {
	Resolve(ctx context.Context, host string) (int64, error)
}

// keywordResolver is *cachelayer.KeywordCache's public surface.
type keywordResolver interface {
	ResolveBatch(ctx context.Context, words []string) (map[string]int64, error)
}

// textExtractor is *textextractor.Client's public surface.
type textExtractor interface {
	Extract(ctx context.Context, body []byte) (text string, version string, err error)
}

// componentVersion is sentropy's own provenance version string for stage
// 12's "self" SoftwareInvolvementRecord.
const componentVersion = "1.0.0"

// Pipeline wires every collaborator stages 1-13 need. Each field is a
// narrow interface so tests supply fakes instead of live services.
type Pipeline struct {
	Store      pipelineStore
	Domains    domainResolver
	Keywords   keywordResolver
	Extractor  textExtractor
	Classifier classifier.Classifier
	Sentences  linguistics.SentenceTokenizer
	Words      linguistics.WordTokenizer
	Tags       linguistics.POSTagger
	Terms      linguistics.TermExtractor
	Dates      linguistics.DateMiner
	Language   linguistics.LanguageIdentifier
	StopList   map[string]bool
}

func (p *Pipeline) keywordLimit() int {
	if sentropy.Config.Pipeline.KeywordLimit > 0 {
		return sentropy.Config.Pipeline.KeywordLimit
	}
	return 32
}

// hostDenied reports whether host matches the substring denylist; denied
// hosts bypass the pipeline with no persistence. Read from
// Config.Pipeline.HostDenylist rather than hard-coded.
func (p *Pipeline) hostDenied(host string) bool {
	for _, d := range sentropy.Config.Pipeline.HostDenylist {
		if d != "" && strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// Process runs one RawArticle through stages 1-13. A nil return means the
// article's fate was fully recorded (skipped, terminal Article.status, or
// RawArticleResult committed) and the caller should Ack; a non-nil return
// is an infrastructure failure the caller should Nak so the queue
// redelivers.
func (p *Pipeline) Process(ctx context.Context, rawArticleID int64) error {
	result, err := p.Store.GetRawArticleResult(ctx, rawArticleID)
	if err != nil {
		return fmt.Errorf("pipeline: load raw article result %d: %w", rawArticleID, err)
	}
	// Idempotence: a result other than Unprocessed means
	// a prior delivery already owns this id.
	if sentropy.RawArticleStatus(result.Status) != sentropy.RawUnprocessed {
		return nil
	}

	ra, err := p.Store.GetRawArticle(ctx, rawArticleID)
	if err != nil {
		return fmt.Errorf("pipeline: load raw article %d: %w", rawArticleID, err)
	}

	host, path, err := urlx.Split(ra.URL)
	if err != nil {
		// Cannot resolve a domain key at all: nothing below can produce an
		// Article row (domain_id is a required FK), so this is recorded as
		// RawArticleResult(Error), not Article.status = OtherError.
		return p.commitRawError(ctx, rawArticleID)
	}
	if p.hostDenied(host) {
		return nil // denylisted hosts bypass the pipeline with no persistence at all.
	}

	art := p.enrich(ctx, ra, host, path)

	var retryErr error
	maxRetries := sentropy.Config.Pipeline.MaxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		retryErr = p.commit(ctx, rawArticleID, art)
		if retryErr == nil {
			return nil
		}
	}
	// Stage 13's final-failure path: mark RawArticleResult(Error) rather
	// than leave the article permanently Unprocessed.
	if err := p.commitRawError(ctx, rawArticleID); err != nil {
		return fmt.Errorf("pipeline: commit article %d failed (%v), and marking error failed: %w", rawArticleID, retryErr, err)
	}
	return nil
}

// commitRawError marks a RawArticleResult as Error outside any document
// transaction — used when the failure precedes or bypasses the stage 13
// commit entirely (domain unresolvable, or retries exhausted).
func (p *Pipeline) commitRawError(ctx context.Context, rawArticleID int64) error {
	if err := p.Store.SetRawArticleResultStatus(ctx, nil, rawArticleID, sentropy.RawError); err != nil {
		return fmt.Errorf("pipeline: mark raw article %d error: %w", rawArticleID, err)
	}
	return nil
}

// articleMaterial is everything the enrichment stages accumulate ahead of
// the stage 13 commit: either a terminal status (outcome.isTerminal()), or
// enough data to build a DocumentWrite.
type articleMaterial struct {
	host, path  string
	crawlFileID int64
	dateCrawled time.Time

	status  sentropy.ArticleStatus
	outcome outcome

	domainID int64
	doc      store.DocumentWrite
}

// enrich runs stages 2-12, never touching the store beyond domain
// resolution and the stage-1 FindArticle pre-check (both of which the
// commit phase needs to have happened already to size the transaction
// correctly). It always returns a fully decided articleMaterial; errors
// that would otherwise bubble are folded into a terminal status —
// entity-level validation errors are recovered in place — except for the
// handful explicitly marked retryable below.
func (p *Pipeline) enrich(ctx context.Context, ra *store.RawArticle, host, path string) articleMaterial {
	art := articleMaterial{host: host, path: path, crawlFileID: ra.CrawlFileID, dateCrawled: ra.DateCrawled}

	// Stage 2: resolve/create Domain. Structurally this must precede the
	// stage 1 uniqueness pre-check below, since FindArticle needs a
	// domain id; the observable behavior is the same in either order.
	domainID, err := p.Domains.Resolve(ctx, host)
	if err != nil {
		art.outcome = retryableOutcome(fmt.Errorf("resolve domain %q: %w", host, err))
		return art
	}
	art.domainID = domainID

	// Stage 1: pre-check, now that domainID is known.
	if _, err := p.Store.FindArticle(ctx, domainID, ra.CrawlFileID, path); err == nil {
		art.outcome = skippedOutcome()
		return art
	} else if !errors.Is(err, sentropy.ErrNotFound) {
		art.outcome = retryableOutcome(fmt.Errorf("pre-check article: %w", err))
		return art
	}

	// Stage 3: content-type gate.
	if ra.ContentType != "text/html" {
		art.outcome = terminalOutcome(sentropy.StatusUnsupportedType)
		return art
	}

	// Stages 4a/4b run in parallel: text-extractor over HTTP, HTML tree
	// parse. The HTML-parse side also kicks off date mining immediately
	//, since it needs only the parsed tree.
	var cleanedText, extractorVersion string
	var doc *goquery.Document
	var dateContexts map[string]linguistics.DateContext

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, version, err := p.Extractor.Extract(gctx, ra.Body)
		if err != nil {
			return err
		}
		cleanedText, extractorVersion = text, version
		return nil
	})
	g.Go(func() error {
		d, err := htmlx.Parse(ra.Body)
		if err != nil {
			return err
		}
		doc = d
		dateContexts = p.Dates.Mine(d)
		return nil
	})
	if err := g.Wait(); err != nil {
		art.outcome = terminalOutcome(sentropy.StatusNoContent)
		return art
	}
	if cleanedText == "" || doc == nil {
		art.outcome = terminalOutcome(sentropy.StatusNoContent)
		return art
	}

	// Stage 5: language gate.
	if lang, _ := p.Language.Identify(string(ra.Body)); lang != "en" {
		art.outcome = terminalOutcome(sentropy.StatusLanguageError)
		return art
	}

	// Stage 6: headline.
	headline := htmlx.PickHeadline(doc, cleanedText)

	// Stage 7: keyword set + adjacency pairs.
	sentences := p.Sentences.Tokenize(cleanedText)
	var allRuns [][]nnpRun
	for _, sentence := range sentences {
		tagged := p.Tags.Tag(p.Words.Tokenize(sentence))
		allRuns = append(allRuns, collectNNPRuns(tagged))
	}
	terms := p.Terms.Extract(cleanedText)
	keywords := selectKeywords(terms, p.StopList, p.keywordLimit())
	adjacencies := buildAdjacencies(allRuns, p.keywordLimit())

	// Stages 8 (classification) and 11a (keyword batch-upsert) run in
	// parallel: they share no state until 11b's incidence attachment.
	wordSet := map[string]bool{}
	for _, w := range keywords {
		wordSet[w] = true
	}
	for _, pair := range adjacencies {
		wordSet[pair.First] = true
		wordSet[pair.Second] = true
	}
	uniqueWords := make([]string, 0, len(wordSet))
	for w := range wordSet {
		uniqueWords = append(uniqueWords, w)
	}

	var classification classifier.Result
	var classifyErr error
	var wordIDs map[string]int64
	var resolveErr error

	g2, gctx2 := errgroup.WithContext(ctx)
	g2.Go(func() error {
		classification, classifyErr = p.Classifier.Classify(gctx2, cleanedText)
		return nil
	})
	g2.Go(func() error {
		wordIDs, resolveErr = p.Keywords.ResolveBatch(gctx2, uniqueWords)
		return nil
	})
	_ = g2.Wait()

	if resolveErr != nil {
		art.outcome = retryableOutcome(fmt.Errorf("resolve keywords: %w", resolveErr))
		return art
	}
	if classifyErr != nil {
		art.outcome = terminalOutcome(sentropy.StatusClassificationError)
		return art
	}

	// Stage 9: date mining, filtered against the cleaned body.
	htmlxContexts := make([]htmlx.DateContext, 0, len(dateContexts))
	byMatchedText := map[string]linguistics.DateContext{}
	for _, dc := range dateContexts {
		htmlxContexts = append(htmlxContexts, htmlx.DateContext{MatchedText: dc.MatchedText, Preposition: dc.Preposition})
		byMatchedText[dc.MatchedText] = dc
	}
	filtered := htmlx.FilterDateContexts(htmlxContexts, cleanedText)

	var certainDates []store.CertainDateWrite
	var ambiguousDates []store.AmbiguousDateWrite
	for _, fc := range filtered {
		dc := byMatchedText[fc.MatchedText]
		position := strings.Index(string(ra.Body), fc.MatchedText)
		if len(dc.Candidates) == 1 {
			certainDates = append(certainDates, store.CertainDateWrite{Date: dc.Candidates[0].Date, Position: position})
			continue
		}
		for _, cand := range dc.Candidates {
			ambiguousDates = append(ambiguousDates, store.AmbiguousDateWrite{
				Date:           cand.Date,
				Interpretation: int(interpretationOf(cand)),
				MatchedText:    fc.MatchedText,
				Position:       position,
			})
		}
	}
	noDates := len(certainDates) == 0 && len(ambiguousDates) == 0

	// Stage 10: link extraction, resolving absolute-link target domains
	// through the same Domain Resolution Worker used for the article's own
	// host.
	links := htmlx.ExtractLinks(doc, cleanedText)
	var relativeLinks []string
	var absoluteLinks []store.AbsoluteLinkWrite
	for _, l := range links {
		if !l.Absolute {
			relativeLinks = append(relativeLinks, l.Path)
			continue
		}
		linkDomainID, err := p.Domains.Resolve(ctx, l.Domain)
		if err != nil {
			continue // an unresolvable link target is dropped, not fatal
		}
		absoluteLinks = append(absoluteLinks, store.AbsoluteLinkWrite{DomainID: linkDomainID, Path: l.Path})
	}

	// Stage 11b: attach KeywordIncidence to phrases, and resolve the
	// adjacency pairs to ids.
	sentenceWrites := make([]store.SentenceWrite, 0, len(classification.Sentences))
	for _, s := range classification.Sentences {
		phraseWrites := make([]store.PhraseWrite, 0, len(s.Phrases))
		for _, ph := range s.Phrases {
			var ids []int64
			lowered := strings.ToLower(ph.Text)
			for _, w := range keywords {
				if id, ok := wordIDs[w]; ok && strings.Contains(lowered, w) {
					ids = append(ids, id)
				}
			}
			phraseWrites = append(phraseWrites, store.PhraseWrite{
				Label:      ph.Label.Int(),
				Score:      ph.Score,
				Prob:       ph.Prob,
				Text:       ph.Text,
				KeywordIDs: ids,
			})
		}
		sentenceWrites = append(sentenceWrites, store.SentenceWrite{
			Label:   s.Label.Int(),
			Score:   s.AverageScore,
			Prob:    s.Prob,
			Text:    s.Text,
			Phrases: phraseWrites,
		})
	}

	adjacencyWrites := make([]store.AdjacencyWrite, 0, len(adjacencies))
	for _, a := range adjacencies {
		id1, ok1 := wordIDs[a.First]
		if !ok1 {
			continue
		}
		id2, ok2 := wordIDs[a.Second]
		adjacencyWrites = append(adjacencyWrites, store.AdjacencyWrite{Key1ID: id1, Key2ID: id2, Key2Valid: ok2})
	}

	// Stage 12: software provenance.
	provenance := []store.ProvenanceWrite{
		{SoftwareName: "sentropy", SoftwareVersion: componentVersion, Action: int(sentropy.ActionProcessed)},
		{SoftwareName: "text-extractor", SoftwareVersion: extractorVersion, Action: int(sentropy.ActionExtracted)},
		{SoftwareName: "classifier", SoftwareVersion: classification.Version, Action: int(sentropy.ActionClassified)},
		{SoftwareName: "date-miner", SoftwareVersion: componentVersion, Action: int(sentropy.ActionDated)},
	}

	art.doc = store.DocumentWrite{
		Label:          classification.Label.Int(),
		Length:         classification.Length,
		Headline:       headline,
		PosPhrases:     classification.PosPhrases,
		NegPhrases:     classification.NegPhrases,
		PosSentences:   classification.PosSentences,
		NegSentences:   classification.NegSentences,
		Sentences:      sentenceWrites,
		Adjacencies:    adjacencyWrites,
		CertainDates:   certainDates,
		AmbiguousDates: ambiguousDates,
		RelativeLinks:  relativeLinks,
		AbsoluteLinks:  absoluteLinks,
		Provenance:     provenance,
	}

	if noDates {
		// No date survived filtering: the Document graph built above is
		// still committed, just with a non-Processed Article.status.
		art.status = sentropy.StatusNoDates
	} else {
		art.status = sentropy.StatusProcessed
	}
	art.outcome = proceedOutcome()
	return art
}

// interpretationOf maps a DateCandidate's day-first/year-first flags to
// the persisted AmbiguousInterpretation enum.
func interpretationOf(c linguistics.DateCandidate) sentropy.AmbiguousInterpretation {
	switch {
	case c.DayFirst && c.YearFirst:
		return sentropy.DayFirstYearFirst
	case c.DayFirst && !c.YearFirst:
		return sentropy.DayFirstYearSecond
	case !c.DayFirst && c.YearFirst:
		return sentropy.MonthFirstYearFirst
	default:
		return sentropy.MonthFirstYearSecond
	}
}

// commit performs stage 13: the single atomic transaction that records
// whatever enrich decided, one attempt. Retrying on transient failure is
// the caller's responsibility (Process loops this up to MaxRetries).
func (p *Pipeline) commit(ctx context.Context, rawArticleID int64, art articleMaterial) error {
	if art.outcome.isSkipped() {
		return nil
	}
	if art.outcome.isRetryable() {
		return art.outcome.err
	}

	status := art.status
	if art.outcome.isTerminal() {
		status = art.outcome.status
	}

	return p.Store.WithTx(ctx, store.DefaultTxOptions, func(tx pgx.Tx) error {
		articleID, err := p.Store.InsertArticle(ctx, tx, art.domainID, art.crawlFileID, art.path, art.dateCrawled, status)
		if err != nil {
			return err
		}
		if status == sentropy.StatusProcessed || status == sentropy.StatusNoDates {
			art.doc.ArticleID = articleID
			if _, err := p.Store.InsertDocumentGraph(ctx, tx, art.doc); err != nil {
				return err
			}
		}
		if err := p.Store.InsertRawArticleResultLink(ctx, tx, rawArticleID, articleID); err != nil {
			return err
		}
		return p.Store.SetRawArticleResultStatus(ctx, tx, rawArticleID, sentropy.RawProcessed)
	})
}
