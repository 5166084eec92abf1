package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Sentimentron/sentropy/internal/linguistics"
)

// keywordCharPattern is Keyword.word's character restriction:
// [A-Za-z0-9 .], with no consecutive '.' checked separately.
var keywordCharPattern = regexp.MustCompile(`^[A-Za-z0-9 .]+$`)

// ValidKeyword reports whether word may become a persisted Keyword row:
// 1-32 characters, restricted character set, no consecutive dots. An
// invalid word is dropped at stage 7/11, never the enclosing document.
func ValidKeyword(word string) bool {
	if len(word) == 0 || len(word) > 32 {
		return false
	}
	if !keywordCharPattern.MatchString(word) {
		return false
	}
	return !strings.Contains(word, "..")
}

// keywordSet accumulates stage 7's top-K keyword set, enforcing the
// keyword limit: an add past the limit returns false and does not mutate
// the set.
type keywordSet struct {
	limit int
	words []string
	seen  map[string]bool
}

func newKeywordSet(limit int) *keywordSet {
	return &keywordSet{limit: limit, seen: map[string]bool{}}
}

// add inserts word (assumed already lower-cased) if it is new and the set
// isn't full. Returns false if the set was already at its limit.
func (ks *keywordSet) add(word string) bool {
	if ks.seen[word] {
		return true
	}
	if len(ks.words) >= ks.limit {
		return false
	}
	ks.seen[word] = true
	ks.words = append(ks.words, word)
	return true
}

// nnpRun is one maximal run of consecutive NNP-tagged tokens within a
// sentence (stage 7).
type nnpRun []string

// collectNNPRuns walks tagged and returns every maximal run of consecutive
// tokens tagged NNP.
func collectNNPRuns(tagged []linguistics.TaggedToken) []nnpRun {
	var runs []nnpRun
	var current nnpRun
	for _, t := range tagged {
		if t.Tag == "NNP" {
			current = append(current, t.Text)
			continue
		}
		if len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

// adjacencyPair is one ordered pair of consecutive NNP tokens within a run,
// lower-cased for comparison (stage 7).
type adjacencyPair struct {
	First, Second string
}

// buildAdjacencies collects every consecutive pair within each run and
// sums their frequency across every sentence of the document, then keeps
// the top limit pairs ranked by summed frequency (stage 7: "ranked by
// summed token frequency, top-K pairs retained"). Pairs containing a word
// that fails ValidKeyword are dropped here, before the keyword upsert ever
// sees them: an invalid token costs the pair, never the document.
func buildAdjacencies(runs [][]nnpRun, limit int) []adjacencyPair {
	freq := map[adjacencyPair]int{}
	var order []adjacencyPair
	for _, sentenceRuns := range runs {
		for _, run := range sentenceRuns {
			for i := 0; i+1 < len(run); i++ {
				p := adjacencyPair{First: strings.ToLower(run[i]), Second: strings.ToLower(run[i+1])}
				if !ValidKeyword(p.First) || !ValidKeyword(p.Second) {
					continue
				}
				if _, ok := freq[p]; !ok {
					order = append(order, p)
				}
				freq[p]++
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// selectKeywords picks stage 7's top-K keyword set from terms: lower-cased,
// stop-listed words dropped, invalid words dropped, ranked by frequency,
// capped at limit.
func selectKeywords(terms []linguistics.Term, stopList map[string]bool, limit int) []string {
	sorted := make([]linguistics.Term, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Frequency > sorted[j].Frequency
	})

	set := newKeywordSet(limit)
	for _, term := range sorted {
		word := strings.ToLower(strings.TrimSpace(term.Text))
		if !ValidKeyword(word) {
			continue
		}
		if stopList[word] {
			continue
		}
		if !set.add(word) {
			break
		}
	}
	return set.words
}
