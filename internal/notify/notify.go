// Package notify delivers events after a commit has succeeded. Delivery is
// best effort: failures are reported to the caller of Notify, which in the
// services is a post-commit hook that only logs them.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	KindBookingConfirmed Kind = "booking.confirmed"
	KindCycleCreated     Kind = "maintenance.cycle_created"
	KindPaymentUpdated   Kind = "maintenance.payment_updated"
	KindInvitationIssued Kind = "invitation.issued"
	KindAccountActivated Kind = "account.activated"
)

type Event struct {
	Kind       Kind              `json:"kind"`
	UserID     string            `json:"userId,omitempty"`
	Email      string            `json:"email,omitempty"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Log struct {
	Logger *zap.Logger
}

func (l Log) Notify(_ context.Context, e Event) error {
	if l.Logger == nil {
		return nil
	}
	l.Logger.Info("event",
		zap.String("kind", string(e.Kind)),
		zap.String("user_id", e.UserID),
		zap.String("title", e.Title),
		zap.Time("occurred_at", e.OccurredAt),
	)
	return nil
}

// Recorder keeps every event; used by tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
