package resolvers

import (
	"context"
	"strings"
)

// domainPatternStore is the store slice DomainByPattern needs.
type domainPatternStore interface {
	DomainsByPattern(ctx context.Context, pattern string) ([]string, error)
}

// DomainByPattern resolves a bare host into every Domain.key matching
// "%.host".
type DomainByPattern struct {
	Store domainPatternStore
}

func (r DomainByPattern) Resolve(ctx context.Context, host string) ([]string, error) {
	return r.Store.DomainsByPattern(ctx, "%."+host)
}

// keywordPatternStore is the store slice KeywordByPattern needs.
type keywordPatternStore interface {
	KeywordsByPattern(ctx context.Context, pattern string) ([]string, error)
}

// KeywordFormats names the four concrete KeywordByPattern glob shapes
// in use.
var KeywordFormats = []string{"X", "% X", "X %", "% X %"}

// KeywordByPattern resolves a word into every Keyword.word matching its
// format glob, with "X" substituted for the word and "%" left as the SQL
// wildcard.
type KeywordByPattern struct {
	Store  keywordPatternStore
	Format string
}

func (r KeywordByPattern) Resolve(ctx context.Context, word string) ([]string, error) {
	pattern := strings.ReplaceAll(r.Format, "X", word)
	return r.Store.KeywordsByPattern(ctx, pattern)
}

// NewKeywordByPatternStack builds the four-wide MetaCombo the query
// executor uses to expand a keyword token across every configured format.
func NewKeywordByPatternStack(store keywordPatternStore, formats []string) Resolver[string, string] {
	var rs []Resolver[string, string]
	for _, f := range formats {
		rs = append(rs, KeywordByPattern{Store: store, Format: f})
	}
	return MetaCombo[string, string]{Resolvers: rs}
}
