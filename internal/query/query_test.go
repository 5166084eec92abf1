package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/store"
)

func init() {
	sentropy.SetDefaultConfig()
}

// fakeStore is an in-memory stand-in for *store.Store, covering exactly the
// Store interface's method set.
type fakeStore struct {
	domainsByKey map[string]*store.Domain
	domainsByID  map[int64]*store.Domain
	domainGlobs  map[string][]string // pattern -> matching keys

	keywordsByWord map[string]int64
	keywordGlobs   map[string][]string // pattern -> matching words

	docsByDomain       map[int64][]int64
	domainsForKeywords []int64
	strictPairs        map[[3]int64]bool // {key1, key2, doc}
	loosePairs         map[[2]int64]bool // {keyword, doc}

	documents map[int64]*store.Document
	phrases   map[int64][]store.PhraseRow
	incidence map[int64][]int64 // phraseID -> keyword ids
	dates     map[int64]*store.DateSources

	absoluteLinkCounts map[int64]map[string]int
	relativePaths      map[int64]map[string]bool
	selfAbsolutePaths  map[int64]map[string]bool
	articlePaths       map[int64]map[string]bool
	adjacencyPairs     map[int64][][2]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		domainsByKey:       map[string]*store.Domain{},
		domainsByID:        map[int64]*store.Domain{},
		domainGlobs:        map[string][]string{},
		keywordsByWord:     map[string]int64{},
		keywordGlobs:       map[string][]string{},
		docsByDomain:       map[int64][]int64{},
		strictPairs:        map[[3]int64]bool{},
		loosePairs:         map[[2]int64]bool{},
		documents:          map[int64]*store.Document{},
		phrases:            map[int64][]store.PhraseRow{},
		incidence:          map[int64][]int64{},
		dates:              map[int64]*store.DateSources{},
		absoluteLinkCounts: map[int64]map[string]int{},
		relativePaths:      map[int64]map[string]bool{},
		selfAbsolutePaths:  map[int64]map[string]bool{},
		articlePaths:       map[int64]map[string]bool{},
		adjacencyPairs:     map[int64][][2]string{},
	}
}

func (f *fakeStore) GetDomainByKey(ctx context.Context, key string) (*store.Domain, error) {
	if d, ok := f.domainsByKey[key]; ok {
		return d, nil
	}
	return nil, sentropy.ErrNotFound
}

func (f *fakeStore) GetDomainByID(ctx context.Context, id int64) (*store.Domain, error) {
	if d, ok := f.domainsByID[id]; ok {
		return d, nil
	}
	return nil, sentropy.ErrNotFound
}

func (f *fakeStore) DomainsByPattern(ctx context.Context, pattern string) ([]string, error) {
	return f.domainGlobs[pattern], nil
}

func (f *fakeStore) GetKeywordByWord(ctx context.Context, word string) (int64, error) {
	if id, ok := f.keywordsByWord[word]; ok {
		return id, nil
	}
	return 0, sentropy.ErrNotFound
}

func (f *fakeStore) KeywordsByPattern(ctx context.Context, pattern string) ([]string, error) {
	return f.keywordGlobs[pattern], nil
}

func (f *fakeStore) DocumentIDsByDomain(ctx context.Context, domainID int64) ([]int64, error) {
	return f.docsByDomain[domainID], nil
}

func (f *fakeStore) TopDomainsForKeywords(ctx context.Context, keywordIDs []int64, limit int) ([]int64, error) {
	return f.domainsForKeywords, nil
}

func (f *fakeStore) StrictAdjacencyExists(ctx context.Context, key1, key2, documentID int64) (bool, error) {
	return f.strictPairs[[3]int64{key1, key2, documentID}] || f.strictPairs[[3]int64{key2, key1, documentID}], nil
}

func (f *fakeStore) LooseAdjacencyExists(ctx context.Context, keywordID, documentID int64) (bool, error) {
	return f.loosePairs[[2]int64{keywordID, documentID}], nil
}

func (f *fakeStore) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	if d, ok := f.documents[id]; ok {
		return d, nil
	}
	return nil, sentropy.ErrNotFound
}

func (f *fakeStore) PhrasesForDocument(ctx context.Context, documentID int64) ([]store.PhraseRow, error) {
	return f.phrases[documentID], nil
}

func (f *fakeStore) KeywordIDsForPhrase(ctx context.Context, phraseID int64) ([]int64, error) {
	return f.incidence[phraseID], nil
}

func (f *fakeStore) LoadDateSources(ctx context.Context, documentID int64) (*store.DateSources, error) {
	if d, ok := f.dates[documentID]; ok {
		return d, nil
	}
	return &store.DateSources{CrawledDate: time.Unix(0, 0)}, nil
}

func (f *fakeStore) AbsoluteLinkCountsByDomain(ctx context.Context, sourceDomainID int64) (map[string]int, error) {
	return f.absoluteLinkCounts[sourceDomainID], nil
}

func (f *fakeStore) RelativeLinkPathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error) {
	return f.relativePaths[domainID], nil
}

func (f *fakeStore) SelfAbsoluteLinkPathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error) {
	out := map[string]bool{}
	for p := range f.selfAbsolutePaths[domainID] {
		out[p] = true
	}
	return out, nil
}

func (f *fakeStore) ArticlePathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error) {
	return f.articlePaths[domainID], nil
}

func (f *fakeStore) TopKeywordAdjacencies(ctx context.Context, domainID int64, limit int) ([][2]string, error) {
	return f.adjacencyPairs[domainID], nil
}

func TestParseTokensSplitsDomainAndKeywordTokens(t *testing.T) {
	domains, keywords := ParseTokens("BBC.co.uk Obama congress this-has-a-dash")
	assert.Equal(t, []string{"bbc.co.uk"}, domains)
	assert.Equal(t, []string{"obama", "congress"}, keywords)
}

func TestRunResolvesGivenDomainAndReturnsCandidateDocuments(t *testing.T) {
	fs := newFakeStore()
	fs.domainsByKey["bbc.co.uk"] = &store.Domain{ID: 1, Key: "bbc.co.uk"}
	fs.domainsByID[1] = fs.domainsByKey["bbc.co.uk"]
	fs.docsByDomain[1] = []int64{10, 11}
	fs.documents[10] = &store.Document{ID: 10, Label: 1, Headline: "one"}
	fs.documents[11] = &store.Document{ID: 11, Label: -1, Headline: "two"}
	fs.absoluteLinkCounts[1] = map[string]int{"other.com": 3}
	fs.relativePaths[1] = map[string]bool{"/a": true}
	fs.articlePaths[1] = map[string]bool{"/a": true, "/b": true}

	exec := &Executor{Store: fs}
	res, err := exec.Run(context.Background(), "bbc.co.uk")
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, res.DomainIDs)
	assert.Len(t, res.Documents, 2)
	require.Len(t, res.Domains, 1)
	assert.Equal(t, "bbc.co.uk", res.Domains[0].DomainKey)
	assert.Equal(t, 50, res.Domains[0].CoveragePct)
}

func TestRunReportsUnresolvedDomain(t *testing.T) {
	fs := newFakeStore()
	exec := &Executor{Store: fs}

	res, err := exec.Run(context.Background(), "nowhere.example")
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Contains(t, res.Messages[len(res.Messages)-1], "couldn't resolve any domain")
}

func TestRunAutoSeedsDomainsFromKeywordsWhenNoDomainGiven(t *testing.T) {
	fs := newFakeStore()
	fs.keywordsByWord["obama"] = 100
	fs.domainsForKeywords = []int64{5}
	fs.domainsByID[5] = &store.Domain{ID: 5, Key: "news.example"}
	fs.docsByDomain[5] = []int64{20}
	fs.documents[20] = &store.Document{ID: 20}
	fs.loosePairs[[2]int64{100, 20}] = true

	exec := &Executor{Store: fs}
	res, err := exec.Run(context.Background(), "obama")
	require.NoError(t, err)

	assert.Equal(t, []int64{5}, res.DomainIDs)
	assert.Len(t, res.Documents, 1)
	assert.True(t, res.UsedKeywords)
}

func TestRunPrefersStrictAdjacencyWhenAboveFloor(t *testing.T) {
	sentropy.Config.Query.StrictBigramFloor = 1
	defer func() { sentropy.Config.Query.StrictBigramFloor = 100 }()

	fs := newFakeStore()
	fs.domainsByKey["bbc.co.uk"] = &store.Domain{ID: 1, Key: "bbc.co.uk"}
	fs.domainsByID[1] = fs.domainsByKey["bbc.co.uk"]
	fs.docsByDomain[1] = []int64{10, 11}
	fs.keywordsByWord["obama"] = 100
	fs.keywordsByWord["congress"] = 101
	fs.strictPairs[[3]int64{100, 101, 10}] = true
	fs.documents[10] = &store.Document{ID: 10}
	fs.documents[11] = &store.Document{ID: 11}

	exec := &Executor{Store: fs}
	res, err := exec.Run(context.Background(), "bbc.co.uk obama congress")
	require.NoError(t, err)

	require.Len(t, res.Documents, 1)
	assert.Equal(t, int64(10), res.Documents[0].DocumentID)
	for _, m := range res.Messages {
		assert.NotContains(t, m, "falling back to loose")
	}
}

func TestRunFallsBackToLooseAdjacencyBelowFloor(t *testing.T) {
	fs := newFakeStore()
	fs.domainsByKey["bbc.co.uk"] = &store.Domain{ID: 1, Key: "bbc.co.uk"}
	fs.domainsByID[1] = fs.domainsByKey["bbc.co.uk"]
	fs.docsByDomain[1] = []int64{10, 11}
	fs.keywordsByWord["obama"] = 100
	fs.keywordsByWord["congress"] = 101
	fs.loosePairs[[2]int64{100, 10}] = true
	fs.documents[10] = &store.Document{ID: 10}
	fs.documents[11] = &store.Document{ID: 11}

	exec := &Executor{Store: fs}
	res, err := exec.Run(context.Background(), "bbc.co.uk obama congress")
	require.NoError(t, err)

	require.Len(t, res.Documents, 1)
	assert.Equal(t, int64(10), res.Documents[0].DocumentID)

	found := false
	for _, m := range res.Messages {
		if assert.ObjectsAreEqual("fewer than the strict-match floor, falling back to loose keyword adjacency", m) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestScoreDocumentAccumulatesRelevantPhrases(t *testing.T) {
	fs := newFakeStore()
	fs.documents[1] = &store.Document{ID: 1, Label: 1}
	fs.phrases[1] = []store.PhraseRow{
		{ID: 100, Label: 1, Prob: 0.9, Text: "good"},
		{ID: 101, Label: -1, Prob: 0.7, Text: "bad"},
		{ID: 102, Label: 1, Prob: 0.5, Text: "irrelevant"},
	}
	fs.incidence[100] = []int64{5}
	fs.incidence[101] = []int64{5}
	fs.incidence[102] = []int64{6}

	exec := &Executor{Store: fs}
	dr, err := exec.scoreDocument(context.Background(), 1, []int64{5})
	require.NoError(t, err)

	assert.Equal(t, 1, dr.RelevantPositivePhrases)
	assert.Equal(t, 1, dr.RelevantNegativePhrases)
	assert.Equal(t, 2, dr.RelevantPhraseCount)
	assert.InDelta(t, 1.6, dr.RelevantPhraseProbSum, 0.0001)
}

func TestTopLinksWithOthersSplitsAtN(t *testing.T) {
	counts := map[string]int{"a.com": 10, "b.com": 5, "c.com": 1}
	top, others := topLinksWithOthers(counts, 2)
	assert.Equal(t, map[string]int{"a.com": 10, "b.com": 5}, top)
	assert.Equal(t, 1, others)
}

func TestCoveragePercentComputesJaccard(t *testing.T) {
	internal := map[string]bool{"/a": true, "/b": true}
	known := map[string]bool{"/a": true, "/c": true}
	assert.Equal(t, 33, coveragePercent(internal, known))
}

func TestSummarizeDomainCountsSameDomainAbsoluteLinksAsInternal(t *testing.T) {
	fs := newFakeStore()
	fs.domainsByID[1] = &store.Domain{ID: 1, Key: "bbc.co.uk"}
	fs.relativePaths[1] = map[string]bool{"/a": true}
	fs.selfAbsolutePaths[1] = map[string]bool{"/b": true}
	fs.articlePaths[1] = map[string]bool{"/a": true, "/b": true}

	exec := &Executor{Store: fs}
	s, err := exec.summarizeDomain(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100, s.CoveragePct, "same-domain absolute links must join the internal-path-set")
	assert.Empty(t, s.LinkHistogram)
}

func TestSampleKeywordNGramsChainsConsecutivePairs(t *testing.T) {
	pairs := [][2]string{{"new", "york"}, {"york", "times"}}
	samples := sampleKeywordNGrams(pairs, 5)
	require.NotEmpty(t, samples)
	for _, s := range samples {
		assert.NotEmpty(t, s)
	}
}
