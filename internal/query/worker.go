package query

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/queue"
	"github.com/Sentimentron/sentropy/internal/store"
)

// presenter is the slice of *presenter.Presenter the worker needs; a local
// interface keeps the dependency pointing presenter -> query, never back.
type presenter interface {
	Present(ctx context.Context, queryID int64, result *Result) error
	Fail(ctx context.Context, queryID int64, cause error) error
}

// queryLoader loads the UserQuery text the executor runs against.
type queryLoader interface {
	GetUserQuery(ctx context.Context, id int64) (*store.UserQuery, error)
}

// Worker drains the query-queue: one UserQuery id per message, executed
// single-threaded, then handed to the presenter. Execution failures are
// recorded on the UserQuery row via Fail rather than redelivered forever.
type Worker struct {
	Executor  *Executor
	Presenter presenter
	Queries   queryLoader
	Queue     queue.Queue

	// Log receives per-query progress and failures; nil means silent.
	Log *zap.SugaredLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (w *Worker) log() *zap.SugaredLogger {
	if w.Log != nil {
		return w.Log
	}
	return zap.NewNop().Sugar()
}

// Start launches n concurrent consume loops (Config.Query.NumWorkers when
// n <= 0), each pulling from the query-queue until Stop is called.
func (w *Worker) Start(n int) {
	if n <= 0 {
		n = sentropy.Config.Query.NumWorkers
	}
	if n <= 0 {
		n = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.loop(ctx, uuid.NewString())
		}()
	}
}

// Stop signals every loop to exit and blocks until they have.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context, workerID string) {
	log := w.log().With("worker", workerID)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.Queue.Consume(ctx, sentropy.Config.Queue.QueryQueueName)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnw("consume query-queue", "error", err)
			continue
		}

		if err := w.Handle(ctx, msg.ID()); err != nil {
			log.Errorw("handle query", "query_id", msg.ID(), "error", err)
			if err := msg.Nak(); err != nil {
				log.Errorw("nak query", "query_id", msg.ID(), "error", err)
			}
			continue
		}
		if err := msg.Ack(); err != nil {
			log.Errorw("ack query", "query_id", msg.ID(), "error", err)
		}
	}
}

// Handle executes one UserQuery end to end. An execution failure is
// recorded on the UserQuery row (and is a success from the queue's point
// of view); only infrastructure failures — the query row being unloadable,
// or the failure record itself not sticking — propagate for a Nak.
func (w *Worker) Handle(ctx context.Context, queryID int64) error {
	uq, err := w.Queries.GetUserQuery(ctx, queryID)
	if err != nil {
		return err
	}

	result, err := w.Executor.Run(ctx, uq.Text)
	if err != nil {
		return w.Presenter.Fail(ctx, queryID, err)
	}
	if err := w.Presenter.Present(ctx, queryID, result); err != nil {
		return w.Presenter.Fail(ctx, queryID, err)
	}
	return nil
}
