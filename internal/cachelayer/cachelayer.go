// Package cachelayer wraps the word->keyword_id and host->domain_id lookups
// behind read-through/write-through LRU caches: a hashicorp/golang-lru
// cache in front of a store lookup, populated lazily and kept warm on
// every successful insert.
package cachelayer

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/Sentimentron/sentropy/internal/store"
)

// keywordStore is the slice of *store.Store that KeywordCache needs,
// accepted as an interface so tests can supply a fake instead of a live
// database.
type keywordStore interface {
	GetKeywordByWord(ctx context.Context, word string) (int64, error)
	UpsertKeywords(ctx context.Context, words []string) (map[string]int64, error)
}

// KeywordCache resolves keyword words to ids, caching the word->id result
// of every successful lookup or UpsertKeywords so stage 11's hot path
// rarely touches the database once the cache-keywords subcommand has warmed
// it. There is no id->word direction.
type KeywordCache struct {
	cache *lru.Cache
	store keywordStore
}

// NewKeywordCache builds a KeywordCache of the given capacity.
func NewKeywordCache(size int, s keywordStore) (*KeywordCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("cachelayer: new keyword cache: %w", err)
	}
	return &KeywordCache{cache: c, store: s}, nil
}

// Resolve returns the id for word, checking the cache before the store.
func (kc *KeywordCache) Resolve(ctx context.Context, word string) (int64, error) {
	if id, ok := kc.cache.Get(word); ok {
		return id.(int64), nil
	}
	id, err := kc.store.GetKeywordByWord(ctx, word)
	if err != nil {
		return 0, err
	}
	kc.cache.Add(word, id)
	return id, nil
}

// ResolveBatch resolves every word in words, upserting any that are new to
// both the store and the cache. Matches stage 11's "batch-upsert all unique
// words, then resolve every occurrence against the result" ordering.
func (kc *KeywordCache) ResolveBatch(ctx context.Context, words []string) (map[string]int64, error) {
	out := make(map[string]int64, len(words))
	var misses []string
	for _, w := range words {
		if id, ok := kc.cache.Get(w); ok {
			out[w] = id.(int64)
		} else {
			misses = append(misses, w)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	resolved, err := kc.store.UpsertKeywords(ctx, misses)
	if err != nil {
		return nil, err
	}
	for w, id := range resolved {
		out[w] = id
		kc.cache.Add(w, id)
	}
	return out, nil
}

// Warm preloads the cache with a known word->id mapping, used by the
// cache-keywords CLI subcommand's full-table scan.
func (kc *KeywordCache) Warm(word string, id int64) {
	kc.cache.Add(word, id)
}

// Len reports the number of entries currently cached.
func (kc *KeywordCache) Len() int {
	return kc.cache.Len()
}

// domainStore is the slice of *store.Store that DomainCache needs, accepted
// as an interface so tests can supply a fake instead of a live database.
type domainStore interface {
	GetDomainByKey(ctx context.Context, key string) (*store.Domain, error)
	InsertDomainIgnore(ctx context.Context, key string) (int64, error)
}

// DomainCache resolves domain keys to ids: a cache check first, a store
// round-trip on miss, and a cache fill on every successful resolution or
// creation.
type DomainCache struct {
	cache *lru.Cache
	store domainStore
}

// NewDomainCache builds a DomainCache of the given capacity.
func NewDomainCache(size int, s domainStore) (*DomainCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("cachelayer: new domain cache: %w", err)
	}
	return &DomainCache{cache: c, store: s}, nil
}

// Resolve returns the id for a domain key, or sentropy.ErrNotFound if it has
// never been seen. Used by the resolvers package, which must not create
// domains themselves.
func (dc *DomainCache) Resolve(ctx context.Context, key string) (int64, error) {
	if id, ok := dc.cache.Get(key); ok {
		return id.(int64), nil
	}
	d, err := dc.store.GetDomainByKey(ctx, key)
	if err != nil {
		return 0, err
	}
	dc.cache.Add(key, d.ID)
	return d.ID, nil
}

// ResolveOrCreate is the single-writer insert-ignore-then-reread Domain
// resolution step, with the cache absorbing repeat lookups of the same
// host across a crawl file.
func (dc *DomainCache) ResolveOrCreate(ctx context.Context, key string) (int64, error) {
	if id, ok := dc.cache.Get(key); ok {
		return id.(int64), nil
	}
	id, err := dc.store.InsertDomainIgnore(ctx, key)
	if err != nil {
		return 0, err
	}
	dc.cache.Add(key, id)
	return id, nil
}

// Warm preloads the cache with a known key->id mapping, used by the
// cache-domains CLI subcommand's full-table scan.
func (dc *DomainCache) Warm(key string, id int64) {
	dc.cache.Add(key, id)
}

// Len reports the number of entries currently cached.
func (dc *DomainCache) Len() int {
	return dc.cache.Len()
}
