// Package queue is a minimal interface over the three work queues
// (crawl-queue, process-queue, query-queue), each carrying a decimal
// numeric id per message, backed by a concrete nats.go JetStream adapter.
// The narrow interface keeps the pipeline from importing the nats package
// directly.
package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Sentimentron/sentropy"
)

// Message is one delivered queue entry. Ack marks it permanently handled;
// Nak makes it immediately re-deliverable (used for retryable stage
// outcomes). Letting the message's visibility timeout lapse without
// either call has the same effect as Nak.
type Message interface {
	ID() int64
	Ack() error
	Nak() error
}

// Queue is the narrow surface the pipeline, transfer worker and query
// executor use: publish a numeric id, and consume one at a time.
type Queue interface {
	Publish(ctx context.Context, subject string, id int64) error
	Consume(ctx context.Context, subject string) (Message, error)
	Close() error
}

// natsMessage adapts a *nats.Msg to the Message interface, parsing its
// decimal body once on delivery.
type natsMessage struct {
	msg *nats.Msg
	id  int64
}

func (m *natsMessage) ID() int64 { return m.id }
func (m *natsMessage) Ack() error {
	return m.msg.Ack()
}
func (m *natsMessage) Nak() error {
	return m.msg.Nak()
}

// NatsQueue is the concrete Queue backed by a NATS JetStream pull consumer
// per subject, using AckWait as the visibility timeout.
type NatsQueue struct {
	conn *nats.Conn
	js   nats.JetStreamContext

	visibilityTimeout time.Duration
	subs              map[string]*nats.Subscription
}

// NewNatsQueue connects to every URL in sentropy.Config.Queue.URLs and
// ensures the three named queue streams/consumers exist.
func NewNatsQueue(ctx context.Context) (*NatsQueue, error) {
	conn, err := nats.Connect(strings.Join(sentropy.Config.Queue.URLs, ","))
	if err != nil {
		return nil, fmt.Errorf("queue: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: jetstream context: %w", err)
	}

	visibility, err := time.ParseDuration(sentropy.Config.Queue.VisibilityTimeout)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: parse visibility timeout: %w", err)
	}

	q := &NatsQueue{conn: conn, js: js, visibilityTimeout: visibility, subs: map[string]*nats.Subscription{}}

	for _, subject := range []string{
		sentropy.Config.Queue.CrawlQueueName,
		sentropy.Config.Queue.ProcessQueueName,
		sentropy.Config.Queue.QueryQueueName,
	} {
		if err := q.ensureStream(subject); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return q, nil
}

func (q *NatsQueue) ensureStream(subject string) error {
	_, err := q.js.StreamInfo(subject)
	if err == nil {
		return nil
	}
	_, err = q.js.AddStream(&nats.StreamConfig{
		Name:     subject,
		Subjects: []string{subject},
	})
	if err != nil {
		return fmt.Errorf("queue: add stream %q: %w", subject, err)
	}
	return nil
}

// Publish enqueues id as a decimal string on subject.
func (q *NatsQueue) Publish(ctx context.Context, subject string, id int64) error {
	_, err := q.js.Publish(subject, []byte(strconv.FormatInt(id, 10)))
	if err != nil {
		return fmt.Errorf("queue: publish to %q: %w", subject, err)
	}
	return nil
}

// Consume pulls the next message from subject, waiting until ctx's deadline
// (30s when ctx has none) and returning an error if no message arrives in
// that time. Cancelling a ctx without a deadline does not cut the wait short.
func (q *NatsQueue) Consume(ctx context.Context, subject string) (Message, error) {
	sub, ok := q.subs[subject]
	if !ok {
		var err error
		sub, err = q.js.PullSubscribe(subject, subject+"-consumer", nats.AckWait(q.visibilityTimeout))
		if err != nil {
			return nil, fmt.Errorf("queue: pull subscribe %q: %w", subject, err)
		}
		q.subs[subject] = sub
	}

	deadline, ok := ctx.Deadline()
	wait := 30 * time.Second
	if ok {
		wait = time.Until(deadline)
	}

	msgs, err := sub.Fetch(1, nats.MaxWait(wait))
	if err != nil {
		return nil, fmt.Errorf("queue: fetch from %q: %w", subject, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("queue: no message available on %q", subject)
	}

	id, err := strconv.ParseInt(string(msgs[0].Data), 10, 64)
	if err != nil {
		// Malformed body: ack it so it doesn't jam the queue forever, and
		// surface the error to the caller.
		_ = msgs[0].Ack()
		return nil, fmt.Errorf("queue: malformed message body on %q: %w", subject, err)
	}
	return &natsMessage{msg: msgs[0], id: id}, nil
}

// Close drains subscriptions and closes the underlying connection.
func (q *NatsQueue) Close() error {
	for _, sub := range q.subs {
		_ = sub.Unsubscribe()
	}
	q.conn.Close()
	return nil
}
