package account

import (
	"context"
	"fmt"
	"sort"

	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/docstore"
)

type Repo struct {
	store docstore.Reader
}

func NewRepo(store docstore.Reader) *Repo {
	return &Repo{store: store}
}

func (r *Repo) Get(ctx context.Context, uid string) (*Account, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: empty uid", ErrAccountNotFound)
	}
	snap, err := r.store.Get(ctx, Collection, uid)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, uid)
	}
	a := FromSnapshot(snap)
	return &a, nil
}

// ListResidents returns every resident ordered by name. Sorting happens here
// so the query needs no composite index.
func (r *Repo) ListResidents(ctx context.Context) ([]Account, error) {
	snaps, err := r.store.Query(ctx, docstore.From(Collection).Where("role", authctx.RoleResident))
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	out := make([]Account, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, FromSnapshot(s))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}
