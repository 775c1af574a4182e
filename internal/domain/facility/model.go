package facility

import (
	"time"

	"resitrack/backend/internal/docstore"
)

const (
	Collection         = "facilities"
	BookingsCollection = "facilityBookings"
)

// UserBookingsCollection is users/{uid}/bookings, the per-user receipts.
func UserBookingsCollection(uid string) string {
	return docstore.Path("users", uid, "bookings")
}

// BookingID keys the per-day slot map: gym_2024-06-01.
func BookingID(facilityID, date string) string {
	return facilityID + "_" + date
}

type TimeSlot struct {
	SlotID    string `json:"slotId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type Facility struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	BookingRequired bool       `json:"bookingRequired"`
	IsAvailable     bool       `json:"isAvailable"`
	TimeSlots       []TimeSlot `json:"timeSlots"`
}

func (f Facility) Slot(slotID string) (TimeSlot, bool) {
	for _, s := range f.TimeSlots {
		if s.SlotID == slotID {
			return s, true
		}
	}
	return TimeSlot{}, false
}

func (f Facility) Doc() docstore.Doc {
	slots := make([]any, 0, len(f.TimeSlots))
	for _, s := range f.TimeSlots {
		slots = append(slots, map[string]any{
			"slotId":    s.SlotID,
			"startTime": s.StartTime,
			"endTime":   s.EndTime,
		})
	}
	return docstore.Doc{
		"name":            f.Name,
		"description":     f.Description,
		"bookingRequired": f.BookingRequired,
		"isAvailable":     f.IsAvailable,
		"timeSlots":       slots,
	}
}

func facilityFromSnapshot(snap docstore.Snapshot) Facility {
	f := Facility{
		ID:              snap.ID,
		Name:            docstore.String(snap.Data, "name"),
		Description:     docstore.String(snap.Data, "description"),
		BookingRequired: boolOr(snap.Data, true, "bookingRequired"),
		// older app builds serialised the flag as "available"
		IsAvailable: boolOr(snap.Data, true, "isAvailable", "available"),
	}
	for _, m := range docstore.Maps(snap.Data, "timeSlots") {
		f.TimeSlots = append(f.TimeSlots, TimeSlot{
			SlotID:    docstore.String(m, "slotId"),
			StartTime: docstore.String(m, "startTime"),
			EndTime:   docstore.String(m, "endTime"),
		})
	}
	return f
}

func boolOr(d docstore.Doc, def bool, keys ...string) bool {
	for _, k := range keys {
		if v, ok := d[k].(bool); ok {
			return v
		}
	}
	return def
}

// FacilityBooking maps slot id to the uid holding it for one facility-day.
type FacilityBooking struct {
	ID          string            `json:"id"`
	FacilityID  string            `json:"facilityId"`
	Date        string            `json:"date"`
	BookedSlots map[string]string `json:"bookedSlots"`
}

func bookingFromSnapshot(snap docstore.Snapshot) FacilityBooking {
	return FacilityBooking{
		ID:          snap.ID,
		FacilityID:  docstore.String(snap.Data, "facilityId"),
		Date:        docstore.String(snap.Data, "date"),
		BookedSlots: docstore.StringMap(snap.Data, "bookedSlots"),
	}
}

type UserBooking struct {
	ID           string    `json:"id"`
	FacilityID   string    `json:"facilityId"`
	FacilityName string    `json:"facilityName"`
	Date         string    `json:"date"`
	SlotID       string    `json:"slotId"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	BookedAt     time.Time `json:"bookedAt"`
}

func (b UserBooking) Doc() docstore.Doc {
	return docstore.Doc{
		"facilityId":   b.FacilityID,
		"facilityName": b.FacilityName,
		"date":         b.Date,
		"slotId":       b.SlotID,
		"startTime":    b.StartTime,
		"endTime":      b.EndTime,
		"bookedAt":     b.BookedAt,
	}
}

func userBookingFromSnapshot(snap docstore.Snapshot) UserBooking {
	b := UserBooking{
		ID:           snap.ID,
		FacilityID:   docstore.String(snap.Data, "facilityId"),
		FacilityName: docstore.String(snap.Data, "facilityName"),
		Date:         docstore.String(snap.Data, "date"),
		SlotID:       docstore.String(snap.Data, "slotId"),
		StartTime:    docstore.String(snap.Data, "startTime"),
		EndTime:      docstore.String(snap.Data, "endTime"),
	}
	if t := docstore.Time(snap.Data, "bookedAt"); t != nil {
		b.BookedAt = *t
	}
	return b
}

type ReserveInput struct {
	Facility Facility
	Date     string
	SlotID   string
}
