// Package domainresolve turns a host string into a domain_id: a
// single-writer service using the cache-then-insert-ignore-then-reread
// idiom to survive two racing writers claiming the same key.
//
// The retry loop is bounded: ResolveOrCreate already performs one
// insert-then-reread round trip, so a failure surfacing here is either a
// genuinely invalid key or a transient DB error, and only the latter is
// worth retrying.
package domainresolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/urlx"
)

// ErrInvalidKey means host failed Domain.key validation: it is not
// retried, since no amount of spinning makes an invalid key valid.
var ErrInvalidKey = fmt.Errorf("domainresolve: invalid domain key")

// Valid reports whether key is a well-formed Domain.key. Delegates
// to urlx.ValidDomainKey, the same check applied when a URL is first split
// into (domain, path), so both call sites agree on what a well-formed
// Domain.key looks like.
func Valid(key string) bool {
	return urlx.ValidDomainKey(key)
}

// domainCache is the slice of *cachelayer.DomainCache the resolver needs.
type domainCache interface {
	ResolveOrCreate(ctx context.Context, key string) (int64, error)
}

// Resolver resolves hosts to domain ids on top of a
// DomainCache, adding key validation and bounded retry around transient
// store failures.
type Resolver struct {
	Cache domainCache

	// Retries bounds the insert-ignore-then-reread retry loop. Zero means
	// use sentropy.Config.Pipeline.DomainResolveRetries.
	Retries int

	// Backoff is the delay between retries. Zero means 10ms.
	Backoff time.Duration
}

// New builds a Resolver backed by cache, using the configured retry budget.
func New(cache domainCache) *Resolver {
	return &Resolver{Cache: cache}
}

func (r *Resolver) retries() int {
	if r.Retries > 0 {
		return r.Retries
	}
	return sentropy.Config.Pipeline.DomainResolveRetries
}

func (r *Resolver) backoff() time.Duration {
	if r.Backoff > 0 {
		return r.Backoff
	}
	return 10 * time.Millisecond
}

// Resolve validates host against the Domain.key pattern, lowercases it, then
// resolves or creates its Domain row, retrying a bounded number of times on
// error (stage 2's "Resolve/create Domain" step).
func (r *Resolver) Resolve(ctx context.Context, host string) (int64, error) {
	key := strings.ToLower(strings.TrimSpace(host))
	if !Valid(key) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, host)
	}

	var lastErr error
	for attempt := 0; attempt < r.retries(); attempt++ {
		id, err := r.Cache.ResolveOrCreate(ctx, key)
		if err == nil {
			return id, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(r.backoff()):
		}
	}
	return 0, fmt.Errorf("domainresolve: exhausted %d retries resolving %q: %w", r.retries(), key, lastErr)
}
