package facility

import (
	"context"
	"fmt"

	"resitrack/backend/internal/docstore"
)

type Repo struct {
	store docstore.Reader
}

func NewRepo(store docstore.Reader) *Repo {
	return &Repo{store: store}
}

func (r *Repo) Get(ctx context.Context, facilityID string) (*Facility, error) {
	if facilityID == "" {
		return nil, fmt.Errorf("%w: empty id", ErrFacilityNotFound)
	}
	snap, err := r.store.Get(ctx, Collection, facilityID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, fmt.Errorf("%w: %s", ErrFacilityNotFound, facilityID)
	}
	f := facilityFromSnapshot(snap)
	return &f, nil
}

// Booking returns the slot map for one facility-day; a day nobody booked
// yields an empty map.
func (r *Repo) Booking(ctx context.Context, facilityID, date string) (*FacilityBooking, error) {
	id := BookingID(facilityID, date)
	snap, err := r.store.Get(ctx, BookingsCollection, id)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return &FacilityBooking{ID: id, FacilityID: facilityID, Date: date, BookedSlots: map[string]string{}}, nil
	}
	b := bookingFromSnapshot(snap)
	return &b, nil
}

// UserBookings lists a user's receipts, newest first.
func (r *Repo) UserBookings(ctx context.Context, uid string) ([]UserBooking, error) {
	snaps, err := r.store.Query(ctx, docstore.From(UserBookingsCollection(uid)).OrderBy("bookedAt", true))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]UserBooking, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, userBookingFromSnapshot(s))
	}
	return out, nil
}
