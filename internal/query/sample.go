package query

import (
	"math/rand"
	"strings"
)

// sampleKeywordNGrams draws up to count random chains from pairs, a domain's
// top keyword adjacencies. A chain starts at a random pair and
// extends forward while the last word has an outgoing pair of its own,
// stopping on a repeat to avoid cycles. It makes max(count, len(pairs))
// attempts, each seeded by a pair drawn at random with replacement, so a
// pair may seed several chains and the same chain may appear more than once.
func sampleKeywordNGrams(pairs [][2]string, count int) []string {
	if len(pairs) == 0 || count <= 0 {
		return nil
	}

	next := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		next[p[0]] = append(next[p[0]], p[1])
	}

	attempts := count
	if len(pairs) > attempts {
		attempts = len(pairs)
	}

	var out []string
	for i := 0; i < attempts && len(out) < count; i++ {
		seed := pairs[rand.Intn(len(pairs))]
		chain := []string{seed[0], seed[1]}
		seen := map[string]bool{seed[0]: true, seed[1]: true}
		for {
			candidates := next[chain[len(chain)-1]]
			if len(candidates) == 0 {
				break
			}
			word := candidates[rand.Intn(len(candidates))]
			if seen[word] {
				break
			}
			chain = append(chain, word)
			seen[word] = true
		}
		out = append(out, strings.Join(chain, " "))
	}
	return out
}
