package query

import (
	"regexp"
	"strings"
)

var (
	domainTokenPattern  = regexp.MustCompile(`^[a-z.]+$`)
	keywordTokenPattern = regexp.MustCompile(`^[a-z0-9]+$`)
)

// ParseTokens splits free-text query into domain tokens (lowercase letters
// and dots, containing at least one dot) and keyword tokens (alphanumeric
// only). Anything matching neither shape is dropped.
func ParseTokens(text string) (domains, keywords []string) {
	for _, raw := range strings.Fields(text) {
		tok := strings.ToLower(strings.TrimSpace(raw))
		if tok == "" {
			continue
		}
		switch {
		case strings.Contains(tok, ".") && domainTokenPattern.MatchString(tok):
			domains = append(domains, tok)
		case keywordTokenPattern.MatchString(tok):
			keywords = append(keywords, tok)
		}
	}
	return domains, keywords
}
