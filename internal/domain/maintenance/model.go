package maintenance

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"resitrack/backend/internal/docstore"
)

const (
	CyclesCollection   = "maintenanceCycles"
	PaymentsCollection = "maintenancePayments"
)

type PaymentStatus string

const (
	StatusPending PaymentStatus = "Pending"
	StatusPaid    PaymentStatus = "Paid"
)

func (s PaymentStatus) Valid() bool {
	return s == StatusPending || s == StatusPaid
}

// CycleID is the billing period key, e.g. 2024_05.
func CycleID(year int, month time.Month) string {
	return fmt.Sprintf("%04d_%02d", year, int(month))
}

// PaymentID is the deterministic ledger key of one resident in one cycle.
func PaymentID(cycleID, uid string) string {
	return cycleID + "_" + uid
}

type Cycle struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	AmountDue decimal.Decimal `json:"amountDue"`
	DueDate   time.Time       `json:"dueDate"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
}

func (c Cycle) Doc() docstore.Doc {
	return docstore.Doc{
		"title":     c.Title,
		"amountDue": c.AmountDue.InexactFloat64(),
		"dueDate":   c.DueDate.UTC(),
		"year":      c.Year,
		"month":     c.Month,
	}
}

func cycleFromSnapshot(snap docstore.Snapshot) Cycle {
	c := Cycle{
		ID:        snap.ID,
		Title:     docstore.String(snap.Data, "title"),
		AmountDue: decimal.NewFromFloat(docstore.Float(snap.Data, "amountDue")).Round(2),
		Year:      docstore.Int(snap.Data, "year"),
		Month:     docstore.Int(snap.Data, "month"),
	}
	if t := docstore.Time(snap.Data, "dueDate"); t != nil {
		c.DueDate = *t
	}
	return c
}

type Payment struct {
	ID           string        `json:"id"`
	CycleID      string        `json:"cycleId"`
	ResidentUID  string        `json:"residentUid"`
	ResidentName string        `json:"residentName"`
	FlatNo       string        `json:"flatNo"`
	Status       PaymentStatus `json:"status"`
	PaidOn       *time.Time    `json:"paidOn,omitempty"`
}

func (p Payment) Doc() docstore.Doc {
	d := docstore.Doc{
		"cycleId":      p.CycleID,
		"residentUid":  p.ResidentUID,
		"residentName": p.ResidentName,
		"flatNo":       p.FlatNo,
		"status":       string(p.Status),
		"paidOn":       nil,
	}
	if p.PaidOn != nil {
		d["paidOn"] = p.PaidOn.UTC()
	}
	return d
}

func paymentFromSnapshot(snap docstore.Snapshot) Payment {
	return Payment{
		ID:           snap.ID,
		CycleID:      docstore.String(snap.Data, "cycleId"),
		ResidentUID:  docstore.String(snap.Data, "residentUid"),
		ResidentName: docstore.String(snap.Data, "residentName"),
		FlatNo:       docstore.String(snap.Data, "flatNo"),
		Status:       PaymentStatus(docstore.String(snap.Data, "status")),
		PaidOn:       docstore.Time(snap.Data, "paidOn"),
	}
}

// CreateCycleInput is the admin form; DueDate is YYYY-MM-DD.
type CreateCycleInput struct {
	ID        string          `json:"id,omitempty"`
	Title     string          `json:"title"`
	AmountDue decimal.Decimal `json:"amountDue"`
	DueDate   string          `json:"dueDate"`
}

func (in *CreateCycleInput) Trim() {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.DueDate = strings.TrimSpace(in.DueDate)
}
