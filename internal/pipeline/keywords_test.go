package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sentimentron/sentropy/internal/linguistics"
)

func TestValidKeywordAcceptsAllowedCharacters(t *testing.T) {
	for _, w := range []string{"obama", "new york", "u.s.a", "a"} {
		assert.True(t, ValidKeyword(w), w)
	}
}

func TestValidKeywordRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"this-has-a-dash",
		"semicolon;",
		"double..dot",
		"",
	}
	for _, w := range cases {
		assert.False(t, ValidKeyword(w), w)
	}
	assert.False(t, ValidKeyword(stringOfLen(33)))
	assert.True(t, ValidKeyword(stringOfLen(32)))
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestKeywordSetStopsAddingAtLimit(t *testing.T) {
	ks := newKeywordSet(2)
	assert.True(t, ks.add("a"))
	assert.True(t, ks.add("b"))
	assert.False(t, ks.add("c"))
	assert.Equal(t, []string{"a", "b"}, ks.words)
}

func TestKeywordSetDeduplicates(t *testing.T) {
	ks := newKeywordSet(5)
	ks.add("a")
	ks.add("a")
	assert.Equal(t, []string{"a"}, ks.words)
}

func TestCollectNNPRunsFindsMaximalRuns(t *testing.T) {
	tagged := []linguistics.TaggedToken{
		{Text: "New", Tag: "NNP"},
		{Text: "York", Tag: "NNP"},
		{Text: "is", Tag: "VBZ"},
		{Text: "Obama", Tag: "NNP"},
	}
	runs := collectNNPRuns(tagged)
	assert.Equal(t, []nnpRun{{"New", "York"}, {"Obama"}}, runs)
}

func TestBuildAdjacenciesDropsPairsWithInvalidWords(t *testing.T) {
	runs := [][]nnpRun{
		{{"O'Brien", "Smith"}},
		{{"New", "York"}},
		{{stringOfLen(33), "Jones"}},
	}
	adj := buildAdjacencies(runs, 10)
	assert.Equal(t, []adjacencyPair{{First: "new", Second: "york"}}, adj,
		"pairs containing an invalid word must be dropped, not upserted")
}

func TestBuildAdjacenciesRanksBySummedFrequencyAndCapsAtLimit(t *testing.T) {
	runs := [][]nnpRun{
		{{"New", "York"}},
		{{"New", "York"}},
		{{"Los", "Angeles"}},
	}
	adj := buildAdjacencies(runs, 1)
	assert.Equal(t, []adjacencyPair{{First: "new", Second: "york"}}, adj)
}

func TestSelectKeywordsFiltersStopListAndInvalidWords(t *testing.T) {
	terms := []linguistics.Term{
		{Text: "Obama", Frequency: 5},
		{Text: "the", Frequency: 10},
		{Text: "bad;word", Frequency: 9},
		{Text: "congress", Frequency: 3},
	}
	stopList := map[string]bool{"the": true}
	selected := selectKeywords(terms, stopList, 10)
	assert.Equal(t, []string{"obama", "congress"}, selected)
}

func TestSelectKeywordsCapsAtLimit(t *testing.T) {
	terms := []linguistics.Term{
		{Text: "one", Frequency: 3},
		{Text: "two", Frequency: 2},
		{Text: "three", Frequency: 1},
	}
	selected := selectKeywords(terms, nil, 2)
	assert.Equal(t, []string{"one", "two"}, selected)
}
