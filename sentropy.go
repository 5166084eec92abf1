// Package sentropy holds the small value types shared across the content
// analysis pipeline and query executor: the label/status/method enums that
// appear on nearly every persisted entity in the data model.
package sentropy

import "fmt"

// Label is the sentiment polarity recorded on a Document, Sentence or
// Phrase.
type Label int

const (
	Unknown Label = iota
	Positive
	Negative
)

// Int maps a Label to its persisted integer form (Positive->1, Negative->-1,
// else 0), per the Result Presenter's normalization rule.
func (l Label) Int() int {
	switch l {
	case Positive:
		return 1
	case Negative:
		return -1
	default:
		return 0
	}
}

func (l Label) String() string {
	switch l {
	case Positive:
		return "Positive"
	case Negative:
		return "Negative"
	default:
		return "Unknown"
	}
}

// ParseLabel inverts Label.String.
func ParseLabel(s string) Label {
	switch s {
	case "Positive":
		return Positive
	case "Negative":
		return Negative
	default:
		return Unknown
	}
}

// ArticleStatus is the terminal status recorded on an Article row.
type ArticleStatus int

const (
	StatusUnset ArticleStatus = iota
	StatusProcessed
	StatusNoDates
	StatusNoContent
	StatusUnsupportedType
	StatusClassificationError
	StatusLanguageError
	StatusOtherError
)

func (s ArticleStatus) String() string {
	switch s {
	case StatusProcessed:
		return "Processed"
	case StatusNoDates:
		return "NoDates"
	case StatusNoContent:
		return "NoContent"
	case StatusUnsupportedType:
		return "UnsupportedType"
	case StatusClassificationError:
		return "ClassificationError"
	case StatusLanguageError:
		return "LanguageError"
	case StatusOtherError:
		return "OtherError"
	default:
		return "Unset"
	}
}

// RawArticleStatus tracks the dedup/idempotence key for the pipeline.
type RawArticleStatus int

const (
	RawUnprocessed RawArticleStatus = iota
	RawProcessed
	RawError
)

func (s RawArticleStatus) String() string {
	switch s {
	case RawProcessed:
		return "Processed"
	case RawError:
		return "Error"
	default:
		return "Unprocessed"
	}
}

// CrawlFileKind is the format of a CrawlFile's backing object.
type CrawlFileKind int

const (
	KindSQL CrawlFileKind = iota
	KindText
	KindARFF
)

// CrawlFileStatus tracks a CrawlFile through Crawl Transfer.
type CrawlFileStatus int

const (
	CrawlIncomplete CrawlFileStatus = iota
	CrawlComplete
	CrawlError
)

func (s CrawlFileStatus) String() string {
	switch s {
	case CrawlComplete:
		return "Complete"
	case CrawlError:
		return "Error"
	default:
		return "Incomplete"
	}
}

// SentenceLevel is the HTML structural level a Sentence was extracted from.
type SentenceLevel int

const (
	LevelUnknown SentenceLevel = iota
	LevelOther
	LevelP
	LevelH1
	LevelH2
	LevelH3
	LevelH4
	LevelH5
	LevelH6
)

func (l SentenceLevel) String() string {
	switch l {
	case LevelP:
		return "P"
	case LevelH1:
		return "H1"
	case LevelH2:
		return "H2"
	case LevelH3:
		return "H3"
	case LevelH4:
		return "H4"
	case LevelH5:
		return "H5"
	case LevelH6:
		return "H6"
	case LevelOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// AmbiguousInterpretation names one of the four day/year-order readings of
// an ambiguous date match.
type AmbiguousInterpretation int

const (
	DayFirstYearFirst AmbiguousInterpretation = iota
	DayFirstYearSecond
	MonthFirstYearFirst
	MonthFirstYearSecond
)

func (i AmbiguousInterpretation) String() string {
	switch i {
	case DayFirstYearFirst:
		return "DayFirstYearFirst"
	case DayFirstYearSecond:
		return "DayFirstYearSecond"
	case MonthFirstYearFirst:
		return "MonthFirstYearFirst"
	default:
		return "MonthFirstYearSecond"
	}
}

// SoftwareAction is the kind of involvement a component had in producing a
// Document, recorded for provenance (stage 12).
type SoftwareAction int

const (
	ActionOther SoftwareAction = iota
	ActionClassified
	ActionDated
	ActionProcessed
	ActionExtracted
)

func (a SoftwareAction) String() string {
	switch a {
	case ActionClassified:
		return "Classified"
	case ActionDated:
		return "Dated"
	case ActionProcessed:
		return "Processed"
	case ActionExtracted:
		return "Extracted"
	default:
		return "Other"
	}
}

// DateMethod records which resolver supplied a document's publication date.
type DateMethod int

const (
	MethodCertain DateMethod = iota
	MethodUncertain
	MethodCrawled
)

// Int maps a DateMethod to its presenter-normalized form
// (Certain->0, Uncertain->1, Crawled->2).
func (m DateMethod) Int() int {
	return int(m)
}

func (m DateMethod) String() string {
	switch m {
	case MethodCertain:
		return "Certain"
	case MethodUncertain:
		return "Uncertain"
	default:
		return "Crawled"
	}
}

// ErrNotFound is returned by resolvers and store lookups when a key has no
// known mapping; callers distinguish it from infrastructure errors.
var ErrNotFound = fmt.Errorf("sentropy: not found")
