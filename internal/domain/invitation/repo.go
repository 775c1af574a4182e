package invitation

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

func (r *Repo) Get(ctx context.Context, id string) (*Invitation, error) {
	snap, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	inv := fromSnapshot(snap)
	return &inv, nil
}

// List returns invitations with the given status, newest first. An empty
// status lists all of them.
func (r *Repo) List(ctx context.Context, status Status) ([]Invitation, error) {
	q := docstore.From(Collection)
	if status != "" {
		q = q.Where("status", string(status))
	}
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	out := make([]Invitation, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, fromSnapshot(s))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		switch {
		case a == nil || b == nil:
			return b == nil && a != nil
		case !a.Equal(*b):
			return a.After(*b)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
