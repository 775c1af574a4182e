// Package docstore is the narrow document-store surface the services depend
// on: keyed reads, equality queries, single-attempt transactions and atomic
// batches. fsstore backs it with Firestore, memstore keeps everything in
// memory with the same optimistic-concurrency behaviour.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resitrack/backend/internal/apperr"
)

// MaxBatchWrites mirrors Firestore's limit on writes per commit.
const MaxBatchWrites = 500

var (
	// ErrConflict is returned by RunTransaction when a document read by the
	// transaction changed before commit.
	ErrConflict = fmt.Errorf("docstore: transaction contention: %w", apperr.ErrConflict)
	// ErrUnavailable wraps backend failures that are not contention.
	ErrUnavailable = fmt.Errorf("docstore: backend failure: %w", apperr.ErrExternal)
	// ErrReadAfterWrite is returned when a transaction reads after it has
	// already buffered a write.
	ErrReadAfterWrite = errors.New("docstore: read after write in transaction")
	// ErrBatchTooLarge is returned when a batch holds more than MaxBatchWrites.
	ErrBatchTooLarge = errors.New("docstore: too many writes in one commit")
	// ErrMissingDocument is returned when Update targets a document that does
	// not exist.
	ErrMissingDocument = errors.New("docstore: no document to update")
)

// Doc is the wire shape of a document.
type Doc = map[string]any

type Snapshot struct {
	Collection string
	ID         string
	Data       Doc
	Exists     bool
}

// Update is a field-path write; Path {"bookedSlots", "S1"} touches only that key.
type Update struct {
	Path  []string
	Value any
}

func Field(value any, path ...string) Update {
	return Update{Path: path, Value: value}
}

type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection by field equality.
type Query struct {
	Collection string
	Filters    []Filter
	OrderField string
	Descending bool
	Max        int
}

func From(collection string) Query {
	return Query{Collection: collection}
}

func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

func (q Query) OrderBy(field string, descending bool) Query {
	q.OrderField = field
	q.Descending = descending
	return q
}

func (q Query) Limit(n int) Query {
	q.Max = n
	return q
}

type Reader interface {
	// Get returns a snapshot with Exists == false for a missing document.
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	Query(ctx context.Context, q Query) ([]Snapshot, error)
}

// Tx is one attempt of a transaction. All reads must happen before the first
// write.
type Tx interface {
	Get(collection, id string) (Snapshot, error)
	Query(q Query) ([]Snapshot, error)
	Set(collection, id string, data Doc) error
	Update(collection, id string, updates ...Update) error
}

type Batch interface {
	Set(collection, id string, data Doc)
	Len() int
	Commit(ctx context.Context) error
}

type Store interface {
	Reader
	Set(ctx context.Context, collection, id string, data Doc) error
	// RunTransaction runs fn exactly once. Retrying is the caller's decision,
	// see txn.Runner.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Batch() Batch
}

// Path joins collection and document segments: Path("users", uid, "bookings").
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

func IsErrConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
