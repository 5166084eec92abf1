package linguistics

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/mock"
)

// MockSentenceTokenizer implements SentenceTokenizer for tests.
type MockSentenceTokenizer struct{ mock.Mock }

func (m *MockSentenceTokenizer) Tokenize(text string) []string {
	return m.Called(text).Get(0).([]string)
}

// MockWordTokenizer implements WordTokenizer for tests.
type MockWordTokenizer struct{ mock.Mock }

func (m *MockWordTokenizer) Tokenize(sentence string) []string {
	return m.Called(sentence).Get(0).([]string)
}

// MockPOSTagger implements POSTagger for tests.
type MockPOSTagger struct{ mock.Mock }

func (m *MockPOSTagger) Tag(tokens []string) []TaggedToken {
	return m.Called(tokens).Get(0).([]TaggedToken)
}

// MockTermExtractor implements TermExtractor for tests.
type MockTermExtractor struct{ mock.Mock }

func (m *MockTermExtractor) Extract(text string) []Term {
	return m.Called(text).Get(0).([]Term)
}

// MockDateMiner implements DateMiner for tests.
type MockDateMiner struct{ mock.Mock }

func (m *MockDateMiner) Mine(doc *goquery.Document) map[string]DateContext {
	return m.Called(doc).Get(0).(map[string]DateContext)
}

// MockLanguageIdentifier implements LanguageIdentifier for tests.
type MockLanguageIdentifier struct{ mock.Mock }

func (m *MockLanguageIdentifier) Identify(text string) (string, float64) {
	args := m.Called(text)
	return args.String(0), args.Get(1).(float64)
}
