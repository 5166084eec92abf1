// Package linguistics is the linguistic-services and language-identifier
// collaborators: sentence/word tokenizers,
// a POS tagger, a noun-phrase term extractor, a date miner over the HTML
// tree, and a language identifier. All are in-process but out of scope for
// a concrete implementation; sentropy depends on them only through these
// interfaces.
package linguistics

import (
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SentenceTokenizer splits cleaned document text into sentences.
type SentenceTokenizer interface {
	Tokenize(text string) []string
}

// WordTokenizer splits one sentence into word tokens.
type WordTokenizer interface {
	Tokenize(sentence string) []string
}

// TaggedToken is one token plus its part-of-speech tag, e.g. "NNP" for a
// proper noun.
type TaggedToken struct {
	Text string
	Tag  string
}

// POSTagger assigns part-of-speech tags to a token sequence.
type POSTagger interface {
	Tag(tokens []string) []TaggedToken
}

// Term is one candidate keyword surfaced by the noun-phrase extractor,
// prior to the stop-list filter and the top-K cut (stage 7).
type Term struct {
	Text      string
	Frequency int
	Score     float64
}

// TermExtractor runs a noun-phrase term extractor over cleaned text.
type TermExtractor interface {
	Extract(text string) []Term
}

// DateCandidate is one parse of a date-mining context: either the sole
// reading of a CertainDate, or one of several readings of an AmbiguousDate
// readings of an AmbiguousDate.
type DateCandidate struct {
	Date      time.Time
	DayFirst  bool
	YearFirst bool
}

// DateContext is the date miner's full record for one matched location in
// the HTML tree: every candidate reading plus the text/preposition used to
// filter it against the cleaned body (stage 9).
type DateContext struct {
	Candidates  []DateCandidate
	MatchedText string
	Preposition string
}

// DateMiner scans an HTML tree for date contexts, keyed by an
// implementation-defined location key.
type DateMiner interface {
	Mine(doc *goquery.Document) map[string]DateContext
}

// LanguageIdentifier classifies the dominant language of text, returning an
// ISO 639-1 code and a certainty in [0,1].
type LanguageIdentifier interface {
	Identify(text string) (lang string, certainty float64)
}
