// Package txn runs guarded read-modify-write units against a docstore.Store.
// The store runs each transaction once; Runner owns the retry loop so the
// budget and backoff are visible and testable.
package txn

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/docstore"
)

const tracerName = "resitrack/backend/internal/txn"

// Work reads and writes through tx and registers side effects on after. It
// may run several times and must not touch anything outside tx.
type Work func(ctx context.Context, tx docstore.Tx, after *AfterCommit) error

type Runner struct {
	store  docstore.Store
	policy Policy
	logger *zap.Logger
	tracer trace.Tracer
	inline bool
	wg     sync.WaitGroup
}

type Option func(*Runner)

func WithPolicy(p Policy) Option {
	return func(r *Runner) { r.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithInlineHooks runs post-commit hooks before Run returns instead of in a
// goroutine.
func WithInlineHooks() Option {
	return func(r *Runner) { r.inline = true }
}

func NewRunner(store docstore.Store, opts ...Option) (*Runner, error) {
	r := &Runner{
		store:  store,
		policy: DefaultPolicy(),
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.policy.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) Policy() Policy { return r.policy }

// Run executes work in a transaction, retrying only on contention. Errors
// returned by work come back unchanged after the first attempt. When every
// attempt loses, the result wraps apperr.ErrConflict and the last store error.
func (r *Runner) Run(ctx context.Context, name string, work Work) error {
	ctx, span := r.tracer.Start(ctx, "txn.run", trace.WithAttributes(attribute.String("txn.name", name)))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepWithContext(ctx, r.policy.Delay(attempt-1)); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "cancelled")
				return err
			}
		}

		after := &AfterCommit{}
		err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			after.reset()
			return work(ctx, tx, after)
		})
		if err == nil {
			span.SetAttributes(attribute.Int("txn.attempts", attempt))
			r.runHooks(ctx, name, after)
			return nil
		}
		if !docstore.IsErrConflict(err) {
			span.SetAttributes(attribute.Int("txn.attempts", attempt))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		lastErr = err
		r.logger.Debug("transaction contention",
			zap.String("tx", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	span.SetAttributes(attribute.Int("txn.attempts", r.policy.MaxAttempts))
	span.SetStatus(codes.Error, "retries exhausted")
	r.logger.Warn("transaction retries exhausted",
		zap.String("tx", name),
		zap.Int("attempts", r.policy.MaxAttempts),
	)
	return fmt.Errorf("%w: %s gave up after %d attempts: %w", apperr.ErrConflict, name, r.policy.MaxAttempts, lastErr)
}

// Batch builds one atomic batch and commits it once. Batches hold blind,
// idempotent writes, so nothing is read and nothing is retried.
func (r *Runner) Batch(ctx context.Context, name string, build func(b docstore.Batch, after *AfterCommit) error) error {
	ctx, span := r.tracer.Start(ctx, "txn.batch", trace.WithAttributes(attribute.String("txn.name", name)))
	defer span.End()

	b := r.store.Batch()
	after := &AfterCommit{}
	if err := build(b, after); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("txn.writes", b.Len()))

	if err := b.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	r.runHooks(ctx, name, after)
	return nil
}

// Wait blocks until every asynchronous post-commit hook has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
