package facility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/docstore"
	"resitrack/backend/internal/logging"
	"resitrack/backend/internal/notify"
	"resitrack/backend/internal/txn"
	"resitrack/backend/internal/utils"
)

type Service struct {
	repo     *Repo
	runner   *txn.Runner
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo *Repo, runner *txn.Runner, notifier notify.Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		runner:   runner,
		notifier: notifier,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// ReserveByID loads the facility and reserves a slot on it.
func (s *Service) ReserveByID(ctx context.Context, sess authctx.Session, facilityID, date, slotID string) (*UserBooking, error) {
	if !sess.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	f, err := s.repo.Get(ctx, strings.TrimSpace(facilityID))
	if err != nil {
		return nil, err
	}
	return s.Reserve(ctx, sess, ReserveInput{Facility: *f, Date: date, SlotID: slotID})
}

// Reserve books one slot of one facility-day for the session user. The slot
// check, the slot-map write and the receipt are a single guarded transaction;
// only the one key for the slot is written so concurrent bookings of other
// slots are never overwritten.
func (s *Service) Reserve(ctx context.Context, sess authctx.Session, in ReserveInput) (*UserBooking, error) {
	if !sess.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	slot, err := validate(&in)
	if err != nil {
		return nil, err
	}

	f := in.Facility
	bookingID := BookingID(f.ID, in.Date)
	receipt := UserBooking{
		ID:           uuid.NewString(),
		FacilityID:   f.ID,
		FacilityName: f.Name,
		Date:         in.Date,
		SlotID:       slot.SlotID,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		BookedAt:     s.now().UTC(),
	}

	err = s.runner.Run(ctx, "facility.reserve", func(ctx context.Context, tx docstore.Tx, after *txn.AfterCommit) error {
		snap, err := tx.Get(BookingsCollection, bookingID)
		if err != nil {
			return err
		}

		if snap.Exists {
			if _, held := docstore.StringMap(snap.Data, "bookedSlots")[slot.SlotID]; held {
				return fmt.Errorf("%w: %s %s on %s", ErrSlotTaken, f.ID, slot.SlotID, in.Date)
			}
			if err := tx.Update(BookingsCollection, bookingID, docstore.Field(sess.UID, "bookedSlots", slot.SlotID)); err != nil {
				return err
			}
		} else {
			if err := tx.Set(BookingsCollection, bookingID, docstore.Doc{
				"facilityId":  f.ID,
				"date":        in.Date,
				"bookedSlots": map[string]any{slot.SlotID: sess.UID},
			}); err != nil {
				return err
			}
		}

		if err := tx.Set(UserBookingsCollection(sess.UID), receipt.ID, receipt.Doc()); err != nil {
			return err
		}

		after.Add("notify", func(ctx context.Context) error {
			return s.notify(ctx, sess.UID, receipt)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("slot reserved",
		zap.String("facility_id", f.ID),
		zap.String("date", in.Date),
		zap.String("slot_id", slot.SlotID),
		zap.String("uid", sess.UID),
	)
	return &receipt, nil
}

func (s *Service) notify(ctx context.Context, uid string, b UserBooking) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(ctx, notify.Event{
		Kind:   notify.KindBookingConfirmed,
		UserID: uid,
		Title:  "Booking confirmed",
		Body:   fmt.Sprintf("%s on %s, %s-%s", b.FacilityName, b.Date, b.StartTime, b.EndTime),
		Data: map[string]string{
			"bookingId":  b.ID,
			"facilityId": b.FacilityID,
			"date":       b.Date,
			"slotId":     b.SlotID,
		},
		OccurredAt: b.BookedAt,
	})
}

func validate(in *ReserveInput) (TimeSlot, error) {
	in.Date = strings.TrimSpace(in.Date)
	in.SlotID = strings.TrimSpace(in.SlotID)

	if in.Facility.ID == "" {
		return TimeSlot{}, fmt.Errorf("%w: facility id is required", apperr.ErrValidation)
	}
	if _, err := utils.ParseDate(in.Date, time.UTC); err != nil {
		return TimeSlot{}, fmt.Errorf("%w: %q", ErrInvalidDate, in.Date)
	}
	slot, ok := in.Facility.Slot(in.SlotID)
	if !ok || in.SlotID == "" {
		return TimeSlot{}, fmt.Errorf("%w: %q not in %s", ErrSlotNotInFacility, in.SlotID, in.Facility.ID)
	}
	if !in.Facility.BookingRequired {
		return TimeSlot{}, fmt.Errorf("%w: %s", ErrBookingNotRequired, in.Facility.ID)
	}
	if !in.Facility.IsAvailable {
		return TimeSlot{}, fmt.Errorf("%w: %s", ErrFacilityUnavailable, in.Facility.ID)
	}
	return slot, nil
}
