package maintenance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/docstore"
	"resitrack/backend/internal/domain/account"
	"resitrack/backend/internal/logging"
	"resitrack/backend/internal/notify"
	"resitrack/backend/internal/txn"
	"resitrack/backend/internal/utils"
)

// ResidentLister supplies the point-in-time resident snapshot for a cycle.
type ResidentLister interface {
	ListResidents(ctx context.Context) ([]account.Account, error)
}

type Service struct {
	repo      *Repo
	runner    *txn.Runner
	residents ResidentLister
	notifier  notify.Notifier
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewService(repo *Repo, runner *txn.Runner, residents ResidentLister, notifier notify.Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		runner:    runner,
		residents: residents,
		notifier:  notifier,
		logger:    logging.OrNop(logger),
		loc:       time.UTC,
		now:       time.Now,
	}
}

// SetLocation sets the zone due dates are read in, which decides the cycle id
// of a due date near a month boundary.
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// CreateFromInput parses the admin form and fans the cycle out to every
// current resident.
func (s *Service) CreateFromInput(ctx context.Context, sess authctx.Session, in CreateCycleInput) (*Cycle, error) {
	in.Trim()
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	due, err := utils.ParseDate(in.DueDate, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: due date %q", ErrInvalidCycle, in.DueDate)
	}
	return s.CreateCycleForResidents(ctx, sess, Cycle{
		ID:        in.ID,
		Title:     in.Title,
		AmountDue: in.AmountDue,
		DueDate:   due,
	})
}

// CreateCycleForResidents snapshots the current residents and creates the cycle.
func (s *Service) CreateCycleForResidents(ctx context.Context, sess authctx.Session, c Cycle) (*Cycle, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	residents, err := s.residents.ListResidents(ctx)
	if err != nil {
		return nil, err
	}
	return s.CreateCycle(ctx, sess, c, residents)
}

// CreateCycle writes the cycle and one Pending payment per resident in one
// atomic batch. Payment keys are deterministic, so running it again with the
// same cycle and residents rewrites the same documents.
func (s *Service) CreateCycle(ctx context.Context, sess authctx.Session, c Cycle, residents []account.Account) (*Cycle, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := s.normalizeCycle(&c); err != nil {
		return nil, err
	}
	ledger, err := uniqueResidents(residents)
	if err != nil {
		return nil, err
	}
	if writes := 1 + len(ledger); writes > docstore.MaxBatchWrites {
		return nil, fmt.Errorf("%w: %d writes, limit %d", ErrLedgerTooLarge, writes, docstore.MaxBatchWrites)
	}

	payments := make([]Payment, 0, len(ledger))
	for _, r := range ledger {
		payments = append(payments, Payment{
			ID:           PaymentID(c.ID, r.UID),
			CycleID:      c.ID,
			ResidentUID:  r.UID,
			ResidentName: r.FullName,
			FlatNo:       r.FlatNo,
			Status:       StatusPending,
		})
	}

	err = s.runner.Batch(ctx, "maintenance.create_cycle", func(b docstore.Batch, after *txn.AfterCommit) error {
		b.Set(CyclesCollection, c.ID, c.Doc())
		for _, p := range payments {
			b.Set(PaymentsCollection, p.ID, p.Doc())
		}
		after.Add("notify", func(ctx context.Context) error {
			return s.notifyResidents(ctx, c, payments)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("maintenance cycle created",
		zap.String("cycle_id", c.ID),
		zap.Int("payments", len(payments)),
	)
	return &c, nil
}

// SetPaymentStatus moves a payment between Pending and Paid. Paid stamps
// paidOn, Pending clears it.
func (s *Service) SetPaymentStatus(ctx context.Context, sess authctx.Session, paymentID string, status PaymentStatus) (*Payment, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if paymentID == "" {
		return nil, fmt.Errorf("%w: empty id", ErrPaymentNotFound)
	}

	var out Payment
	err := s.runner.Run(ctx, "maintenance.set_payment_status", func(ctx context.Context, tx docstore.Tx, after *txn.AfterCommit) error {
		snap, err := tx.Get(PaymentsCollection, paymentID)
		if err != nil {
			return err
		}
		if !snap.Exists {
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
		}
		out = paymentFromSnapshot(snap)
		if out.Status == status {
			return nil
		}

		var paidOn any
		out.PaidOn = nil
		if status == StatusPaid {
			t := s.now().UTC()
			out.PaidOn = &t
			paidOn = t
		}
		out.Status = status
		if err := tx.Update(PaymentsCollection, paymentID,
			docstore.Field(string(status), "status"),
			docstore.Field(paidOn, "paidOn"),
		); err != nil {
			return err
		}

		p := out
		after.Add("notify", func(ctx context.Context) error {
			return s.notifyPayment(ctx, p)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Cycles(ctx context.Context, sess authctx.Session) ([]Cycle, error) {
	if !sess.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	return s.repo.Cycles(ctx)
}

func (s *Service) Payments(ctx context.Context, sess authctx.Session, cycleID string) ([]Payment, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if _, err := s.repo.Cycle(ctx, cycleID); err != nil {
		return nil, err
	}
	return s.repo.Payments(ctx, cycleID)
}

// Payment loads one payment. Residents only see their own; anyone else's
// reads as not found.
func (s *Service) Payment(ctx context.Context, sess authctx.Session, paymentID string) (*Payment, error) {
	if !sess.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	p, err := s.repo.Payment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !sess.IsAdmin() && p.ResidentUID != sess.UID {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	return p, nil
}

func (s *Service) normalizeCycle(c *Cycle) error {
	c.Title = utils.NormalizeSpaces(c.Title)
	if c.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidCycle)
	}
	if c.AmountDue.IsNegative() || !c.AmountDue.Equal(c.AmountDue.Round(2)) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, c.AmountDue)
	}
	if c.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrInvalidCycle)
	}

	due := c.DueDate.In(s.loc)
	derived := CycleID(due.Year(), due.Month())
	switch {
	case c.ID == "":
		c.ID = derived
	case c.ID != derived:
		return fmt.Errorf("%w: %s vs %s", ErrCycleIDMismatch, c.ID, derived)
	}
	c.Year = due.Year()
	c.Month = int(due.Month())
	return nil
}

func uniqueResidents(in []account.Account) ([]account.Account, error) {
	seen := make(map[string]bool, len(in))
	out := make([]account.Account, 0, len(in))
	for _, r := range in {
		if r.UID == "" {
			return nil, ErrInvalidResident
		}
		if seen[r.UID] {
			continue
		}
		seen[r.UID] = true
		out = append(out, r)
	}
	return out, nil
}

func requireAdmin(sess authctx.Session) error {
	if !sess.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

func (s *Service) notifyResidents(ctx context.Context, c Cycle, payments []Payment) error {
	if s.notifier == nil {
		return nil
	}
	now := s.now().UTC()
	var firstErr error
	for _, p := range payments {
		err := s.notifier.Notify(ctx, notify.Event{
			Kind:   notify.KindCycleCreated,
			UserID: p.ResidentUID,
			Title:  "New maintenance due",
			Body:   fmt.Sprintf("%s: %s due on %s", c.Title, c.AmountDue.StringFixed(2), c.DueDate.In(s.loc).Format(utils.DateLayout)),
			Data: map[string]string{
				"cycleId":   c.ID,
				"paymentId": p.ID,
			},
			OccurredAt: now,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) notifyPayment(ctx context.Context, p Payment) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(ctx, notify.Event{
		Kind:   notify.KindPaymentUpdated,
		UserID: p.ResidentUID,
		Title:  "Maintenance payment " + string(p.Status),
		Body:   fmt.Sprintf("Your payment for %s is now %s", p.CycleID, p.Status),
		Data: map[string]string{
			"cycleId":   p.CycleID,
			"paymentId": p.ID,
			"status":    string(p.Status),
		},
		OccurredAt: s.now().UTC(),
	})
}
