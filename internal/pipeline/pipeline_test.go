package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/classifier"
	"github.com/Sentimentron/sentropy/internal/linguistics"
	"github.com/Sentimentron/sentropy/internal/store"
)

func init() {
	sentropy.SetDefaultConfig()
}

type articleKey struct {
	domainID, crawlFileID int64
	path                  string
}

type fakeStore struct {
	rawResults  map[int64]*store.RawArticleResult
	rawArticles map[int64]*store.RawArticle
	articles    map[articleKey]*store.Article
	nextID      int64

	committedArticles []store.Article
	committedDocs     []store.DocumentWrite
	links             []int64
	resultStatuses    []sentropy.RawArticleStatus

	failCommits int // WithTx fails this many times before succeeding
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rawResults:  map[int64]*store.RawArticleResult{},
		rawArticles: map[int64]*store.RawArticle{},
		articles:    map[articleKey]*store.Article{},
	}
}

func (f *fakeStore) GetRawArticleResult(ctx context.Context, rawArticleID int64) (*store.RawArticleResult, error) {
	r, ok := f.rawResults[rawArticleID]
	if !ok {
		return &store.RawArticleResult{RawArticleID: rawArticleID, Status: int(sentropy.RawUnprocessed)}, nil
	}
	return r, nil
}

func (f *fakeStore) GetRawArticle(ctx context.Context, id int64) (*store.RawArticle, error) {
	return f.rawArticles[id], nil
}

func (f *fakeStore) SetRawArticleResultStatus(ctx context.Context, tx pgx.Tx, rawArticleID int64, status sentropy.RawArticleStatus) error {
	f.resultStatuses = append(f.resultStatuses, status)
	f.rawResults[rawArticleID] = &store.RawArticleResult{RawArticleID: rawArticleID, Status: int(status)}
	return nil
}

func (f *fakeStore) FindArticle(ctx context.Context, domainID, crawlFileID int64, path string) (*store.Article, error) {
	a, ok := f.articles[articleKey{domainID, crawlFileID, path}]
	if !ok {
		return nil, sentropy.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) InsertArticle(ctx context.Context, tx pgx.Tx, domainID, crawlFileID int64, path string, dateCrawled time.Time, status sentropy.ArticleStatus) (int64, error) {
	f.nextID++
	a := &store.Article{ID: f.nextID, DomainID: domainID, CrawlFileID: crawlFileID, Path: path, DateCrawled: dateCrawled, Status: int(status)}
	f.articles[articleKey{domainID, crawlFileID, path}] = a
	f.committedArticles = append(f.committedArticles, *a)
	return a.ID, nil
}

func (f *fakeStore) InsertRawArticleResultLink(ctx context.Context, tx pgx.Tx, rawArticleID, articleID int64) error {
	f.links = append(f.links, articleID)
	return nil
}

func (f *fakeStore) InsertDocumentGraph(ctx context.Context, tx pgx.Tx, w store.DocumentWrite) (int64, error) {
	f.committedDocs = append(f.committedDocs, w)
	return int64(len(f.committedDocs)), nil
}

func (f *fakeStore) WithTx(ctx context.Context, opts store.TxOptions, fn func(tx pgx.Tx) error) error {
	if f.failCommits > 0 {
		f.failCommits--
		return assertErr
	}
	return fn(nil)
}

var assertErr = &fakeTransientError{}

type fakeTransientError struct{}

func (*fakeTransientError) Error() string { return "transient db failure" }

type fakeDomains struct {
	ids    map[string]int64
	next   int64
	failOn map[string]bool
}

func newFakeDomains() *fakeDomains {
	return &fakeDomains{ids: map[string]int64{}}
}

func (f *fakeDomains) Resolve(ctx context.Context, host string) (int64, error) {
	if f.failOn[host] {
		return 0, assertErr
	}
	if id, ok := f.ids[host]; ok {
		return id, nil
	}
	f.next++
	f.ids[host] = f.next
	return f.next, nil
}

type fakeKeywords struct{}

func (fakeKeywords) ResolveBatch(ctx context.Context, words []string) (map[string]int64, error) {
	out := make(map[string]int64, len(words))
	for i, w := range words {
		out[w] = int64(i + 1)
	}
	return out, nil
}

type fakeExtractor struct {
	text    string
	version string
	err     error
}

func (f fakeExtractor) Extract(ctx context.Context, body []byte) (string, string, error) {
	return f.text, f.version, f.err
}

func newTestPipeline(s pipelineStore, domains domainResolver, extractor textExtractor, clf classifier.Classifier, lang string, dateContexts map[string]linguistics.DateContext) *Pipeline {
	sentences := &linguistics.MockSentenceTokenizer{}
	sentences.On("Tokenize", mock.Anything).Return([]string{"Congress met today."})
	words := &linguistics.MockWordTokenizer{}
	words.On("Tokenize", mock.Anything).Return([]string{"Congress", "met", "today"})
	tags := &linguistics.MockPOSTagger{}
	tags.On("Tag", mock.Anything).Return([]linguistics.TaggedToken{{Text: "Congress", Tag: "NNP"}})
	terms := &linguistics.MockTermExtractor{}
	terms.On("Extract", mock.Anything).Return([]linguistics.Term{{Text: "congress", Frequency: 3}})
	dates := &linguistics.MockDateMiner{}
	dates.On("Mine", mock.Anything).Return(dateContexts)
	langID := &linguistics.MockLanguageIdentifier{}
	langID.On("Identify", mock.Anything).Return(lang, 0.9)

	return &Pipeline{
		Store:      s,
		Domains:    domains,
		Keywords:   fakeKeywords{},
		Extractor:  extractor,
		Classifier: clf,
		Sentences:  sentences,
		Words:      words,
		Tags:       tags,
		Terms:      terms,
		Dates:      dates,
		Language:   langID,
		StopList:   map[string]bool{},
	}
}

func TestProcessSkipsAlreadyProcessedRawArticle(t *testing.T) {
	s := newFakeStore()
	s.rawResults[1] = &store.RawArticleResult{RawArticleID: 1, Status: int(sentropy.RawProcessed)}
	domains := newFakeDomains()
	p := newTestPipeline(s, domains, fakeExtractor{}, &classifier.MockClassifier{}, "en", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, domains.ids)
	assert.Empty(t, s.committedArticles)
}

func TestProcessBypassesDenylistedHostWithNoPersistence(t *testing.T) {
	s := newFakeStore()
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "http://www.nasa.gov/story", ContentType: "text/html"}
	domains := newFakeDomains()
	p := newTestPipeline(s, domains, fakeExtractor{}, &classifier.MockClassifier{}, "en", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, domains.ids)
	assert.Empty(t, s.resultStatuses)
	assert.Empty(t, s.committedArticles)
}

func TestProcessCommitsUnsupportedTypeForNonHTMLContent(t *testing.T) {
	s := newFakeStore()
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "http://example.com/file.pdf", ContentType: "application/pdf"}
	domains := newFakeDomains()
	p := newTestPipeline(s, domains, fakeExtractor{}, &classifier.MockClassifier{}, "en", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, s.committedArticles, 1)
	assert.Equal(t, int(sentropy.StatusUnsupportedType), s.committedArticles[0].Status)
	assert.Empty(t, s.committedDocs)
	assert.Equal(t, []sentropy.RawArticleStatus{sentropy.RawProcessed}, s.resultStatuses)
}

func TestProcessSkipsWhenPreCheckFindsExistingArticle(t *testing.T) {
	s := newFakeStore()
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "http://example.com/a", ContentType: "text/html"}
	s.articles[articleKey{1, 0, "/a"}] = &store.Article{ID: 99}
	domains := newFakeDomains()
	p := newTestPipeline(s, domains, fakeExtractor{}, &classifier.MockClassifier{}, "en", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, s.committedArticles)
	assert.Empty(t, s.resultStatuses)
}

const testHTML = `<html><body><h1>Congress met today</h1><p>Congress met today in session.</p><a href="/other">today</a><a href="http://news.example.com/x">Congress met today in session.</a></body></html>`

func TestProcessCommitsProcessedDocumentWithDatesOnHappyPath(t *testing.T) {
	s := newFakeStore()
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "http://example.com/a", ContentType: "text/html", Body: []byte(testHTML)}
	domains := newFakeDomains()
	clf := &classifier.MockClassifier{}
	clf.On("Classify", mock.Anything, "Congress met today in session.").Return(classifier.Result{
		Label:  sentropy.Positive,
		Length: 10,
		Sentences: []classifier.SentenceTrace{
			{Text: "Congress met today in session.", Label: sentropy.Positive, Phrases: []classifier.PhraseTrace{
				{Text: "congress met today", Label: sentropy.Positive},
			}},
		},
	}, nil)

	dateContexts := map[string]linguistics.DateContext{
		"k1": {
			MatchedText: "today",
			Preposition: "in",
			Candidates:  []linguistics.DateCandidate{{Date: time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)}},
		},
	}
	extractor := fakeExtractor{text: "Congress met today in session.", version: "1.0"}
	p := newTestPipeline(s, domains, extractor, clf, "en", dateContexts)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, s.committedArticles, 1)
	assert.Equal(t, int(sentropy.StatusProcessed), s.committedArticles[0].Status)
	require.Len(t, s.committedDocs, 1)
	assert.Equal(t, "Congress met today", s.committedDocs[0].Headline)
	assert.Len(t, s.committedDocs[0].CertainDates, 1)
	assert.Len(t, s.committedDocs[0].AbsoluteLinks, 1)
	assert.Len(t, s.committedDocs[0].RelativeLinks, 1)
	clf.AssertExpectations(t)
}

func TestProcessSetsNoDatesStatusWhenNoDateContextsSurvive(t *testing.T) {
	s := newFakeStore()
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "http://example.com/a", ContentType: "text/html", Body: []byte(testHTML)}
	domains := newFakeDomains()
	clf := &classifier.MockClassifier{}
	clf.On("Classify", mock.Anything, mock.Anything).Return(classifier.Result{Label: sentropy.Positive}, nil)
	extractor := fakeExtractor{text: "Congress met today in session.", version: "1.0"}
	p := newTestPipeline(s, domains, extractor, clf, "en", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, s.committedArticles, 1)
	assert.Equal(t, int(sentropy.StatusNoDates), s.committedArticles[0].Status)
	require.Len(t, s.committedDocs, 1) // still commits the Document graph
}

func TestProcessMarksLanguageErrorTerminal(t *testing.T) {
	s := newFakeStore()
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "http://example.com/a", ContentType: "text/html", Body: []byte(testHTML)}
	domains := newFakeDomains()
	extractor := fakeExtractor{text: "Congress met today in session.", version: "1.0"}
	p := newTestPipeline(s, domains, extractor, &classifier.MockClassifier{}, "fr", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, s.committedArticles, 1)
	assert.Equal(t, int(sentropy.StatusLanguageError), s.committedArticles[0].Status)
	assert.Empty(t, s.committedDocs)
}

func TestProcessMarksClassificationErrorTerminal(t *testing.T) {
	s := newFakeStore()
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "http://example.com/a", ContentType: "text/html", Body: []byte(testHTML)}
	domains := newFakeDomains()
	clf := &classifier.MockClassifier{}
	clf.On("Classify", mock.Anything, mock.Anything).Return(nil, assertErr)
	extractor := fakeExtractor{text: "Congress met today in session.", version: "1.0"}
	p := newTestPipeline(s, domains, extractor, clf, "en", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, s.committedArticles, 1)
	assert.Equal(t, int(sentropy.StatusClassificationError), s.committedArticles[0].Status)
}

func TestProcessMarksRawErrorWhenDomainKeyUnparseable(t *testing.T) {
	s := newFakeStore()
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "://not a url", ContentType: "text/html"}
	domains := newFakeDomains()
	p := newTestPipeline(s, domains, fakeExtractor{}, &classifier.MockClassifier{}, "en", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []sentropy.RawArticleStatus{sentropy.RawError}, s.resultStatuses)
	assert.Empty(t, s.committedArticles)
}

func TestProcessRetriesThenMarksRawErrorOnPersistentCommitFailure(t *testing.T) {
	s := newFakeStore()
	s.failCommits = 10 // always fails, regardless of retry budget
	s.rawArticles[1] = &store.RawArticle{ID: 1, URL: "http://example.com/a", ContentType: "application/pdf"}
	domains := newFakeDomains()
	p := newTestPipeline(s, domains, fakeExtractor{}, &classifier.MockClassifier{}, "en", nil)

	err := p.Process(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []sentropy.RawArticleStatus{sentropy.RawError}, s.resultStatuses)
	assert.Empty(t, s.committedArticles)
}
