// Package fsstore implements docstore.Store on Cloud Firestore.
package fsstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"resitrack/backend/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) ref(collection, id string) *firestore.DocumentRef {
	return s.client.Collection(collection).Doc(id)
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	doc, err := s.ref(collection, id).Get(ctx)
	return toSnapshot(collection, id, doc, err)
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	return drain(q.Collection, s.query(q).Documents(ctx))
}

func (s *Store) Set(ctx context.Context, collection, id string, data docstore.Doc) error {
	if _, err := s.ref(collection, id).Set(ctx, data); err != nil {
		return mapErr(err)
	}
	return nil
}

// RunTransaction makes exactly one attempt; Firestore's own retry is turned
// off so txn.Runner sees every Aborted commit.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	var workErr error
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		workErr = fn(ctx, &tx{store: s, ftx: ftx})
		return workErr
	}, firestore.MaxAttempts(1))
	if err == nil {
		return nil
	}
	if workErr != nil {
		return workErr
	}
	return mapErr(err)
}

func (s *Store) Batch() docstore.Batch {
	return &batch{store: s, wb: s.client.Batch()}
}

func (s *Store) query(q docstore.Query) firestore.Query {
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.OrderField != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderField, dir)
	}
	if q.Max > 0 {
		fq = fq.Limit(q.Max)
	}
	return fq
}

type tx struct {
	store *Store
	ftx   *firestore.Transaction
	wrote bool
}

func (t *tx) Get(collection, id string) (docstore.Snapshot, error) {
	if t.wrote {
		return docstore.Snapshot{}, docstore.ErrReadAfterWrite
	}
	doc, err := t.ftx.Get(t.store.ref(collection, id))
	return toSnapshot(collection, id, doc, err)
}

func (t *tx) Query(q docstore.Query) ([]docstore.Snapshot, error) {
	if t.wrote {
		return nil, docstore.ErrReadAfterWrite
	}
	return drain(q.Collection, t.ftx.Documents(t.store.query(q)))
}

func (t *tx) Set(collection, id string, data docstore.Doc) error {
	t.wrote = true
	return mapErr(t.ftx.Set(t.store.ref(collection, id), data))
}

func (t *tx) Update(collection, id string, updates ...docstore.Update) error {
	if len(updates) == 0 {
		return nil
	}
	t.wrote = true
	fu := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		fu = append(fu, firestore.Update{FieldPath: firestore.FieldPath(u.Path), Value: u.Value})
	}
	return mapErr(t.ftx.Update(t.store.ref(collection, id), fu))
}

type batch struct {
	store *Store
	wb    *firestore.WriteBatch
	n     int
}

func (b *batch) Set(collection, id string, data docstore.Doc) {
	b.wb.Set(b.store.ref(collection, id), data)
	b.n++
}

func (b *batch) Len() int { return b.n }

func (b *batch) Commit(ctx context.Context) error {
	if b.n > docstore.MaxBatchWrites {
		return fmt.Errorf("%w: %d > %d", docstore.ErrBatchTooLarge, b.n, docstore.MaxBatchWrites)
	}
	if b.n == 0 {
		return nil
	}
	if _, err := b.wb.Commit(ctx); err != nil {
		return mapErr(err)
	}
	return nil
}

func toSnapshot(collection, id string, doc *firestore.DocumentSnapshot, err error) (docstore.Snapshot, error) {
	snap := docstore.Snapshot{Collection: collection, ID: id}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return snap, nil
		}
		return snap, mapErr(err)
	}
	if doc == nil || !doc.Exists() {
		return snap, nil
	}
	snap.Data = doc.Data()
	snap.Exists = true
	return snap, nil
}

func drain(collection string, it *firestore.DocumentIterator) ([]docstore.Snapshot, error) {
	defer it.Stop()
	var out []docstore.Snapshot
	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, docstore.Snapshot{
			Collection: collection,
			ID:         doc.Ref.ID,
			Data:       doc.Data(),
			Exists:     true,
		})
	}
	return out, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch status.Code(err) {
	case codes.Aborted:
		return fmt.Errorf("%w: %v", docstore.ErrConflict, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %v", docstore.ErrMissingDocument, err)
	case codes.Canceled:
		return fmt.Errorf("%w: %v", context.Canceled, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
}
