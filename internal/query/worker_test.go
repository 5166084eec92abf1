package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/store"
)

type fakePresenter struct {
	presented []int64
	failed    []int64
	lastCause error

	presentErr error
	failErr    error
}

func (p *fakePresenter) Present(ctx context.Context, queryID int64, result *Result) error {
	p.presented = append(p.presented, queryID)
	return p.presentErr
}

func (p *fakePresenter) Fail(ctx context.Context, queryID int64, cause error) error {
	p.failed = append(p.failed, queryID)
	p.lastCause = cause
	return p.failErr
}

type fakeQueryLoader struct {
	queries map[int64]*store.UserQuery
}

func (l *fakeQueryLoader) GetUserQuery(ctx context.Context, id int64) (*store.UserQuery, error) {
	if q, ok := l.queries[id]; ok {
		return q, nil
	}
	return nil, sentropy.ErrNotFound
}

func TestWorkerHandlePresentsSuccessfulQuery(t *testing.T) {
	fs := newFakeStore()
	fs.domainsByKey["bbc.co.uk"] = &store.Domain{ID: 1, Key: "bbc.co.uk"}
	fs.domainsByID[1] = fs.domainsByKey["bbc.co.uk"]
	fs.docsByDomain[1] = []int64{10}
	fs.documents[10] = &store.Document{ID: 10}

	p := &fakePresenter{}
	w := &Worker{
		Executor:  &Executor{Store: fs},
		Presenter: p,
		Queries:   &fakeQueryLoader{queries: map[int64]*store.UserQuery{7: {ID: 7, Text: "bbc.co.uk"}}},
	}

	require.NoError(t, w.Handle(context.Background(), 7))
	assert.Equal(t, []int64{7}, p.presented)
	assert.Empty(t, p.failed)
}

func TestWorkerHandleRecordsPresentationFailure(t *testing.T) {
	fs := newFakeStore()
	fs.domainsByKey["bbc.co.uk"] = &store.Domain{ID: 1, Key: "bbc.co.uk"}
	fs.domainsByID[1] = fs.domainsByKey["bbc.co.uk"]

	p := &fakePresenter{presentErr: errors.New("bucket unreachable")}
	w := &Worker{
		Executor:  &Executor{Store: fs},
		Presenter: p,
		Queries:   &fakeQueryLoader{queries: map[int64]*store.UserQuery{7: {ID: 7, Text: "bbc.co.uk"}}},
	}

	require.NoError(t, w.Handle(context.Background(), 7))
	assert.Equal(t, []int64{7}, p.failed)
	assert.ErrorContains(t, p.lastCause, "bucket unreachable")
}

func TestWorkerHandlePropagatesUnloadableQuery(t *testing.T) {
	p := &fakePresenter{}
	w := &Worker{
		Executor:  &Executor{Store: newFakeStore()},
		Presenter: p,
		Queries:   &fakeQueryLoader{queries: map[int64]*store.UserQuery{}},
	}

	err := w.Handle(context.Background(), 99)
	require.Error(t, err)
	assert.Empty(t, p.presented)
	assert.Empty(t, p.failed)
}
