// Package query implements the query executor: it turns a free-text
// query into a scored set of documents plus per-domain summaries, built
// entirely on top of the resolvers package.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/resolvers"
	"github.com/Sentimentron/sentropy/internal/store"
)

// Store is the slice of *store.Store the executor needs. It is satisfied
// by *store.Store directly and also passed straight into the resolvers
// package's narrower per-resolver interfaces.
type Store interface {
	GetDomainByKey(ctx context.Context, key string) (*store.Domain, error)
	GetDomainByID(ctx context.Context, id int64) (*store.Domain, error)
	DomainsByPattern(ctx context.Context, pattern string) ([]string, error)

	GetKeywordByWord(ctx context.Context, word string) (int64, error)
	KeywordsByPattern(ctx context.Context, pattern string) ([]string, error)

	DocumentIDsByDomain(ctx context.Context, domainID int64) ([]int64, error)
	TopDomainsForKeywords(ctx context.Context, keywordIDs []int64, limit int) ([]int64, error)

	StrictAdjacencyExists(ctx context.Context, key1, key2, documentID int64) (bool, error)
	LooseAdjacencyExists(ctx context.Context, keywordID, documentID int64) (bool, error)

	GetDocument(ctx context.Context, id int64) (*store.Document, error)
	PhrasesForDocument(ctx context.Context, documentID int64) ([]store.PhraseRow, error)
	KeywordIDsForPhrase(ctx context.Context, phraseID int64) ([]int64, error)
	LoadDateSources(ctx context.Context, documentID int64) (*store.DateSources, error)

	AbsoluteLinkCountsByDomain(ctx context.Context, sourceDomainID int64) (map[string]int, error)
	RelativeLinkPathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error)
	SelfAbsoluteLinkPathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error)
	ArticlePathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error)
	TopKeywordAdjacencies(ctx context.Context, domainID int64, limit int) ([][2]string, error)
}

// DocumentResult is one scored candidate document.
type DocumentResult struct {
	DocumentID   int64
	Date         time.Time
	Method       sentropy.DateMethod
	Label        int
	Length       int
	Headline     string
	PosPhrases   int
	NegPhrases   int
	PosSentences int
	NegSentences int

	RelevantPositivePhrases int
	RelevantNegativePhrases int
	RelevantPhraseProbSum   float64
	RelevantPhraseCount     int
}

// DomainSummary is the per-domain aggregate of step 6.
type DomainSummary struct {
	DomainID       int64
	DomainKey      string
	LinkHistogram  map[string]int
	OtherLinks     int
	CoveragePct    int
	KeywordSamples []string
}

// Result is the full output of one Run, ready for the presenter to emit.
type Result struct {
	Messages     []string
	UsedKeywords bool
	DomainIDs    []int64
	Documents    []DocumentResult
	Domains      []DomainSummary
}

// Executor resolves and scores one query against a Store.
type Executor struct {
	Store Store
}

// Run parses queryText, resolves it to a candidate document set, scores
// every candidate, and aggregates per-domain summaries.
func (e *Executor) Run(ctx context.Context, queryText string) (*Result, error) {
	domainTokens, keywordTokens := ParseTokens(queryText)
	res := &Result{}

	domainIDs, err := e.resolveDomains(ctx, domainTokens, res)
	if err != nil {
		return nil, fmt.Errorf("query: resolve domains: %w", err)
	}
	keywordIDs, err := e.resolveKeywords(ctx, keywordTokens, res)
	if err != nil {
		return nil, fmt.Errorf("query: resolve keywords: %w", err)
	}
	res.UsedKeywords = len(keywordIDs) > 0

	if len(keywordIDs) > 0 && len(domainIDs) == 0 {
		seeded, err := e.Store.TopDomainsForKeywords(ctx, keywordIDs, sentropy.Config.Query.AutoSeedDomains)
		if err != nil {
			return nil, fmt.Errorf("query: auto-seed domains: %w", err)
		}
		domainIDs = seeded
		res.Messages = append(res.Messages, fmt.Sprintf(
			"no domain given, expanding from %d keyword(s) to the %d domains hosting them most often",
			len(keywordIDs), len(domainIDs)))
	}
	res.DomainIDs = domainIDs

	if len(domainIDs) == 0 {
		res.Messages = append(res.Messages, "couldn't resolve any domain for this query")
		return res, nil
	}

	candidates, err := e.candidateDocuments(ctx, domainIDs, keywordIDs, res)
	if err != nil {
		return nil, fmt.Errorf("query: build candidate set: %w", err)
	}

	docs := make([]DocumentResult, 0, len(candidates))
	for _, docID := range candidates {
		dr, err := e.scoreDocument(ctx, docID, keywordIDs)
		if err != nil {
			return nil, fmt.Errorf("query: score document %d: %w", docID, err)
		}
		docs = append(docs, dr)
	}
	res.Documents = docs

	summaries := make([]DomainSummary, 0, len(domainIDs))
	for _, domainID := range domainIDs {
		s, err := e.summarizeDomain(ctx, domainID)
		if err != nil {
			return nil, fmt.Errorf("query: summarize domain %d: %w", domainID, err)
		}
		summaries = append(summaries, s)
	}
	res.Domains = summaries

	return res, nil
}

// resolveDomains expands every domain token against the exact key and the
// "%.host" pattern resolver, deduplicating and recording unresolved tokens
// as status messages.
func (e *Executor) resolveDomains(ctx context.Context, tokens []string, res *Result) ([]int64, error) {
	pattern := resolvers.DomainByPattern{Store: e.Store}

	seenKeys := map[string]bool{}
	var keys []string
	for _, tok := range tokens {
		if !seenKeys[tok] {
			seenKeys[tok] = true
			keys = append(keys, tok)
		}
		expanded, err := pattern.Resolve(ctx, tok)
		if err != nil {
			return nil, err
		}
		for _, k := range expanded {
			if !seenKeys[k] {
				seenKeys[k] = true
				keys = append(keys, k)
			}
		}
	}

	var ids []int64
	for _, key := range keys {
		d, err := e.Store.GetDomainByKey(ctx, key)
		if errors.Is(err, sentropy.ErrNotFound) {
			res.Messages = append(res.Messages, fmt.Sprintf("couldn't resolve domain %q", key))
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// resolveKeywords expands every keyword token against its exact word and
// the four KeywordByPattern formats.
func (e *Executor) resolveKeywords(ctx context.Context, tokens []string, res *Result) ([]int64, error) {
	stack := resolvers.NewKeywordByPatternStack(e.Store, sentropy.Config.Query.KeywordFormats)

	seenWords := map[string]bool{}
	var words []string
	for _, tok := range tokens {
		if !seenWords[tok] {
			seenWords[tok] = true
			words = append(words, tok)
		}
		expanded, err := stack.Resolve(ctx, tok)
		if err != nil {
			return nil, err
		}
		for _, w := range expanded {
			if !seenWords[w] {
				seenWords[w] = true
				words = append(words, w)
			}
		}
	}

	var ids []int64
	for _, word := range words {
		id, err := e.Store.GetKeywordByWord(ctx, word)
		if errors.Is(err, sentropy.ErrNotFound) {
			res.Messages = append(res.Messages, fmt.Sprintf("couldn't resolve keyword %q", word))
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// candidateDocuments builds the union of DocumentsByDomain across
// domainIDs, then narrows it by keyword adjacency when keywords were
// given.
func (e *Executor) candidateDocuments(ctx context.Context, domainIDs, keywordIDs []int64, res *Result) ([]int64, error) {
	seen := map[int64]bool{}
	var all []int64
	byDomain := resolvers.DocumentsByDomain{Store: e.Store}
	for _, domainID := range domainIDs {
		ids, err := byDomain.Resolve(ctx, domainID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				all = append(all, id)
			}
		}
	}

	if len(keywordIDs) == 0 {
		return all, nil
	}

	if len(keywordIDs) >= 2 {
		strict, err := e.filterByStrictAdjacency(ctx, all, keywordIDs)
		if err != nil {
			return nil, err
		}
		if len(strict) >= sentropy.Config.Query.StrictBigramFloor {
			return strict, nil
		}
	}

	res.Messages = append(res.Messages,
		"fewer than the strict-match floor, falling back to loose keyword adjacency")
	return e.filterByLooseAdjacency(ctx, all, keywordIDs)
}

func (e *Executor) filterByStrictAdjacency(ctx context.Context, candidates, keywordIDs []int64) ([]int64, error) {
	var pairs [][2]int64
	for i := 0; i < len(keywordIDs); i++ {
		for j := i + 1; j < len(keywordIDs); j++ {
			pairs = append(pairs, [2]int64{keywordIDs[i], keywordIDs[j]})
		}
	}

	var out []int64
	for _, docID := range candidates {
		for _, p := range pairs {
			ok, err := resolvers.StrictAdjacency(ctx, e.Store, p[0], p[1], docID)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, docID)
				break
			}
		}
	}
	return out, nil
}

func (e *Executor) filterByLooseAdjacency(ctx context.Context, candidates, keywordIDs []int64) ([]int64, error) {
	var out []int64
	for _, docID := range candidates {
		for _, k := range keywordIDs {
			ok, err := resolvers.LooseAdjacency(ctx, e.Store, k, docID)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, docID)
				break
			}
		}
	}
	return out, nil
}

// scoreDocument loads one candidate's Document, picks its publication date,
// and accumulates relevance over its phrases.
func (e *Executor) scoreDocument(ctx context.Context, docID int64, keywordIDs []int64) (DocumentResult, error) {
	doc, err := e.Store.GetDocument(ctx, docID)
	if err != nil {
		return DocumentResult{}, err
	}

	picker := resolvers.NewDatePicker(e.Store)
	picked, err := picker.Resolve(ctx, docID)
	if err != nil {
		return DocumentResult{}, err
	}

	dr := DocumentResult{
		DocumentID:   docID,
		Label:        doc.Label,
		Length:       doc.Length,
		Headline:     doc.Headline,
		PosPhrases:   doc.PosPhrases,
		NegPhrases:   doc.NegPhrases,
		PosSentences: doc.PosSentences,
		NegSentences: doc.NegSentences,
	}
	if len(picked) > 0 {
		dr.Date = picked[0].Date
		dr.Method = picked[0].Method
	}

	if len(keywordIDs) == 0 {
		return dr, nil
	}

	keywordSet := make(map[int64]bool, len(keywordIDs))
	for _, id := range keywordIDs {
		keywordSet[id] = true
	}

	phrases, err := e.Store.PhrasesForDocument(ctx, docID)
	if err != nil {
		return DocumentResult{}, err
	}
	for _, p := range phrases {
		relevant, err := resolvers.PhraseRelevantToKeywordSet(ctx, e.Store, p.ID, keywordSet)
		if err != nil {
			return DocumentResult{}, err
		}
		if !relevant {
			continue
		}
		dr.RelevantPhraseCount++
		dr.RelevantPhraseProbSum += p.Prob
		// Phrase labels are persisted in normalized form (Positive -> 1,
		// Negative -> -1, else 0), so compare the stored int, not the enum.
		switch p.Label {
		case sentropy.Positive.Int():
			dr.RelevantPositivePhrases++
		case sentropy.Negative.Int():
			dr.RelevantNegativePhrases++
		}
	}
	return dr, nil
}

// summarizeDomain builds one domain's link histogram, path coverage, and
// keyword n-gram samples.
func (e *Executor) summarizeDomain(ctx context.Context, domainID int64) (DomainSummary, error) {
	domain, err := e.Store.GetDomainByID(ctx, domainID)
	if err != nil {
		return DomainSummary{}, err
	}

	linkCounts, err := e.Store.AbsoluteLinkCountsByDomain(ctx, domainID)
	if err != nil {
		return DomainSummary{}, err
	}
	histogram, others := topLinksWithOthers(linkCounts, sentropy.Config.Query.TopDomainLinks)

	// The internal-path-set is the domain's relative links plus absolute
	// links pointing back at the domain itself.
	internalPaths, err := e.Store.RelativeLinkPathsForDomain(ctx, domainID)
	if err != nil {
		return DomainSummary{}, err
	}
	selfPaths, err := e.Store.SelfAbsoluteLinkPathsForDomain(ctx, domainID)
	if err != nil {
		return DomainSummary{}, err
	}
	for p := range selfPaths {
		internalPaths[p] = true
	}
	articlePaths, err := e.Store.ArticlePathsForDomain(ctx, domainID)
	if err != nil {
		return DomainSummary{}, err
	}

	pairs, err := e.Store.TopKeywordAdjacencies(ctx, domainID, 50)
	if err != nil {
		return DomainSummary{}, err
	}

	return DomainSummary{
		DomainID:       domainID,
		DomainKey:      domain.Key,
		LinkHistogram:  histogram,
		OtherLinks:     others,
		CoveragePct:    coveragePercent(internalPaths, articlePaths),
		KeywordSamples: sampleKeywordNGrams(pairs, sentropy.Config.Query.KeywordSampleSize),
	}, nil
}

// topLinksWithOthers returns the top n domains by link count and the
// summed count of everything outside that top n.
func topLinksWithOthers(counts map[string]int, n int) (map[string]int, int) {
	type kv struct {
		key string
		n   int
	}
	sorted := make([]kv, 0, len(counts))
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].n != sorted[j].n {
			return sorted[i].n > sorted[j].n
		}
		return sorted[i].key < sorted[j].key
	})

	out := map[string]int{}
	others := 0
	for i, e := range sorted {
		if i < n {
			out[e.key] = e.n
		} else {
			others += e.n
		}
	}
	return out, others
}

// coveragePercent is the rounded Jaccard similarity between a domain's
// internal link paths and its known article paths.
func coveragePercent(internalPaths, articlePaths map[string]bool) int {
	union := map[string]bool{}
	for p := range internalPaths {
		union[p] = true
	}
	for p := range articlePaths {
		union[p] = true
	}
	if len(union) == 0 {
		return 0
	}
	intersection := 0
	for p := range union {
		if internalPaths[p] && articlePaths[p] {
			intersection++
		}
	}
	return int(math.Round(float64(intersection) / float64(len(union)) * 100))
}
