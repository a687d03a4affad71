// Package outbox drains the transactional audit outbox to Kafka. Events are
// written to the outbox table in the same transaction as the mutation they
// describe; this worker is the only component that talks to the broker, so
// broker trouble never touches a request path.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Entry is one undelivered outbox row.
type Entry struct {
	ID        string
	EventType string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// Source provides undelivered entries and removes delivered ones.
type Source interface {
	Fetch(ctx context.Context, limit int) ([]Entry, error)
	Delete(ctx context.Context, ids []string) error
}

// Producer is the slice of kgo.Client the worker uses.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
}

// Worker polls the outbox and publishes entries to the audit topic. Delivery
// is at-least-once: an entry is deleted only after the broker acknowledges
// it, so a crash between produce and delete re-publishes.
type Worker struct {
	source   Source
	producer Producer
	topic    string
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize sets the max entries fetched per poll.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker constructs an outbox worker.
func NewWorker(source Source, producer Producer, topic string, opts ...Option) *Worker {
	w := &Worker{
		source:   source,
		producer: producer,
		topic:    topic,
		logger:   slog.Default(),
		interval: 2 * time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; they never stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes one batch of outbox entries. Exported for tests and for a
// final flush on shutdown.
func (w *Worker) Drain(ctx context.Context) error {
	entries, err := w.source.Fetch(ctx, w.batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: w.topic,
			Key:   []byte(e.Key),
			Value: e.Payload,
		})
	}

	results := w.producer.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return w.source.Delete(ctx, ids)
}
