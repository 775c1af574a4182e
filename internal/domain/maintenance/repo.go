package maintenance

import (
	"context"
	"fmt"
	"sort"

	"resitrack/backend/internal/docstore"
)

type Repo struct {
	store docstore.Reader
}

func NewRepo(store docstore.Reader) *Repo {
	return &Repo{store: store}
}

func (r *Repo) Cycle(ctx context.Context, id string) (*Cycle, error) {
	snap, err := r.store.Get(ctx, CyclesCollection, id)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, fmt.Errorf("%w: %s", ErrCycleNotFound, id)
	}
	c := cycleFromSnapshot(snap)
	return &c, nil
}

// Cycles lists every cycle, newest period first.
func (r *Repo) Cycles(ctx context.Context) ([]Cycle, error) {
	snaps, err := r.store.Query(ctx, docstore.From(CyclesCollection))
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	out := make([]Cycle, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, cycleFromSnapshot(s))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (r *Repo) Payments(ctx context.Context, cycleID string) ([]Payment, error) {
	snaps, err := r.store.Query(ctx, docstore.From(PaymentsCollection).Where("cycleId", cycleID))
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]Payment, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, paymentFromSnapshot(s))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FlatNo != out[j].FlatNo {
			return out[i].FlatNo < out[j].FlatNo
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repo) Payment(ctx context.Context, id string) (*Payment, error) {
	snap, err := r.store.Get(ctx, PaymentsCollection, id)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	p := paymentFromSnapshot(snap)
	return &p, nil
}
