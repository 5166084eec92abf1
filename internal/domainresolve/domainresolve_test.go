package domainresolve

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAcceptsKnownTLDs(t *testing.T) {
	for _, key := range []string{"example.com", "news.bbc.co.uk", "sub.domain.example.org"} {
		assert.True(t, Valid(key), key)
	}
}

func TestValidRejectsMalformedKeys(t *testing.T) {
	for _, key := range []string{"", ".example.com", "not a domain", "EXAMPLE.COM", "example."} {
		assert.False(t, Valid(key), key)
	}
}

type fakeDomainCache struct {
	failuresBeforeSuccess int
	calls                 int
	ids                   map[string]int64
}

func (f *fakeDomainCache) ResolveOrCreate(ctx context.Context, key string) (int64, error) {
	f.calls++
	if f.calls <= f.failuresBeforeSuccess {
		return 0, fmt.Errorf("transient failure")
	}
	if f.ids == nil {
		f.ids = map[string]int64{}
	}
	id, ok := f.ids[key]
	if !ok {
		id = int64(len(f.ids) + 1)
		f.ids[key] = id
	}
	return id, nil
}

func TestResolveLowercasesAndResolvesOnFirstTry(t *testing.T) {
	fake := &fakeDomainCache{}
	r := &Resolver{Cache: fake, Retries: 3, Backoff: time.Millisecond}

	id, err := r.Resolve(context.Background(), "Example.COM")
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
	assert.Equal(t, 1, fake.calls)
}

func TestResolveRejectsInvalidHostWithoutCallingCache(t *testing.T) {
	fake := &fakeDomainCache{}
	r := &Resolver{Cache: fake, Retries: 3, Backoff: time.Millisecond}

	_, err := r.Resolve(context.Background(), "not a domain")
	require.ErrorIs(t, err, ErrInvalidKey)
	assert.Equal(t, 0, fake.calls)
}

func TestResolveRetriesTransientFailuresWithinBudget(t *testing.T) {
	fake := &fakeDomainCache{failuresBeforeSuccess: 2}
	r := &Resolver{Cache: fake, Retries: 5, Backoff: time.Millisecond}

	id, err := r.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
	assert.Equal(t, 3, fake.calls)
}

func TestResolveReturnsErrorAfterExhaustingRetries(t *testing.T) {
	fake := &fakeDomainCache{failuresBeforeSuccess: 100}
	r := &Resolver{Cache: fake, Retries: 3, Backoff: time.Millisecond}

	_, err := r.Resolve(context.Background(), "example.com")
	require.Error(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestResolveAbortsOnContextCancellation(t *testing.T) {
	fake := &fakeDomainCache{failuresBeforeSuccess: 100}
	r := &Resolver{Cache: fake, Retries: 5, Backoff: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, "example.com")
	require.Error(t, err)
}
