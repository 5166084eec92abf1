package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/queue"
)

// Worker drives one or more Pipeline.Process loops off the process-queue,
// a Start/Stop/sync.WaitGroup shape for
// a stoppable worker pool.
type Worker struct {
	Pipeline *Pipeline
	Queue    queue.Queue

	// Log receives per-article progress and failures; nil means silent.
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

// Start launches n concurrent consume loops (Config.Pipeline.NumWorkers
// when n <= 0), each pulling from the process-queue until Stop is called.
// Each loop carries its own instance id so interleaved log lines from a
// `process --multi` pool stay attributable.
func (w *Worker) Start(n int) {
	if n <= 0 {
		n = sentropy.Config.Pipeline.NumWorkers
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

		msg, err := w.Queue.Consume(ctx, sentropy.Config.Queue.ProcessQueueName)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnw("consume process-queue", "error", err)
			continue
		}

		if err := w.handle(ctx, msg.ID()); err != nil {
			log.Errorw("process article", "raw_article_id", msg.ID(), "error", err)
			if err := msg.Nak(); err != nil {
				log.Errorw("nak article", "raw_article_id", msg.ID(), "error", err)
			}
			continue
		}
		if err := msg.Ack(); err != nil {
			log.Errorw("ack article", "raw_article_id", msg.ID(), "error", err)
		}
	}
}

// handle applies the soft per-article timeout.
func (w *Worker) handle(ctx context.Context, rawArticleID int64) error {
	timeout, err := time.ParseDuration(sentropy.Config.Pipeline.ArticleTimeout)
	if err != nil {
		timeout = 2 * time.Minute
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := w.Pipeline.Process(tctx, rawArticleID); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	return nil
}
