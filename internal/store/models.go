package store

import "time"

// CrawlSource is the origin of a batch of CrawlFiles.
type CrawlSource struct {
	ID  int64
	Key string
}

// CrawlFile is one unit of work for Crawl Transfer.
type CrawlFile struct {
	ID        int64
	SourceID  int64
	ObjectKey string
	Kind      int
	Status    int
}

// RawArticle is one article read from a CrawlFile, prior to enrichment.
type RawArticle struct {
	ID          int64
	CrawlFileID int64
	URL         string
	ContentType string
	DateCrawled time.Time
	Headers     map[string]string
	Body        []byte
}

// RawArticleResult is the dedup/idempotence key for the pipeline.
type RawArticleResult struct {
	RawArticleID int64
	Status       int
}

// Domain is a unique, lower-cased host.
type Domain struct {
	ID        int64
	Key       string
	FirstSeen time.Time
}

// Article is one (domain, path, crawl_file) tuple.
type Article struct {
	ID          int64
	DomainID    int64
	Path        string
	DateCrawled time.Time
	CrawlFileID int64
	Status      int
}

// Document exists iff its Article.Status == Processed.
type Document struct {
	ID           int64
	ArticleID    int64
	Label        int
	Length       int
	Headline     string
	PosPhrases   int
	NegPhrases   int
	PosSentences int
	NegSentences int
}

// Sentence is a child of Document.
type Sentence struct {
	ID         int64
	DocumentID int64
	Label      int
	Score      float64
	Prob       float64
	Level      int
	Text       string
	Position   int
}

// Phrase is a child of Sentence.
type Phrase struct {
	ID         int64
	SentenceID int64
	Label      int
	Score      float64
	Prob       float64
	Text       string
}

// Keyword is a globally unique, interned word.
type Keyword struct {
	ID   int64
	Word string
}

// KeywordAdjacency is an ordered pair of consecutive NNP tokens in a
// document. Key2 may be absent (Key2Valid == false).
type KeywordAdjacency struct {
	ID         int64
	DocumentID int64
	Key1ID     int64
	Key2ID     int64
	Key2Valid  bool
}

// CertainDate is an unambiguously parsed date.
type CertainDate struct {
	ID         int64
	DocumentID int64
	Date       time.Time
	Position   int
}

// AmbiguousDate is one interpretation of a multiply-parseable date.
type AmbiguousDate struct {
	ID             int64
	DocumentID     int64
	Date           time.Time
	Interpretation int
	MatchedText    string
	Position       int
}

// RelativeLink is a same-document-relative href target.
type RelativeLink struct {
	ID         int64
	DocumentID int64
	Path       string
}

// AbsoluteLink is an `http://`-prefixed href target.
type AbsoluteLink struct {
	ID         int64
	DocumentID int64
	DomainID   int64
	Path       string
}

// SoftwareVersion names a participating component and its version string,
// upserted (no duplicate rows per component+version).
type SoftwareVersion struct {
	ID      int64
	Name    string
	Version string
}

// SoftwareInvolvementRecord attaches a SoftwareVersion to a Document with
// the action it performed.
type SoftwareInvolvementRecord struct {
	ID                int64
	DocumentID        int64
	SoftwareVersionID int64
	Action            int
}

// UserQuery is a query record, unique by text.
type UserQuery struct {
	ID        int64
	Text      string
	Email     string
	Fulfilled *time.Time
	Message   string
	Cancelled bool
}
