// Package memstore provides an in-memory docstore.Store used by tests and
// local runs. Every document carries a version; a transaction remembers the
// version of everything it read (absent documents read as version 0) and its
// commit fails with docstore.ErrConflict when any of them moved, which is how
// Firestore treats concurrent writers.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"resitrack/backend/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

type entry struct {
	data    docstore.Doc
	version uint64
}

type docKey struct {
	collection string
	id         string
}

type write struct {
	key     docKey
	set     docstore.Doc
	updates []docstore.Update
}

type Store struct {
	mu       sync.RWMutex
	cols     map[string]map[string]entry
	clock    uint64
	maxBatch int
	failNext error
	commits  int
}

type Option func(*Store)

// WithMaxBatchWrites overrides docstore.MaxBatchWrites.
func WithMaxBatchWrites(n int) Option {
	return func(s *Store) { s.maxBatch = n }
}

func New(opts ...Option) *Store {
	s := &Store{
		cols:     map[string]map[string]entry{},
		maxBatch: docstore.MaxBatchWrites,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailNextCommit makes the next transaction or batch commit fail with err and
// write nothing.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Commits reports how many transactions and batches have been applied.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cols[collection])
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, _ := s.lookupLocked(docKey{collection, id})
	return snap, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, _ := s.queryLocked(q)
	return out, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data docstore.Doc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailureLocked(); err != nil {
		return err
	}
	s.putLocked(docKey{collection, id}, cloneDoc(data))
	s.commits++
	return nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{store: s, reads: map[docKey]uint64{}}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailureLocked(); err != nil {
		return err
	}
	for key, seen := range t.reads {
		if s.versionLocked(key) != seen {
			return fmt.Errorf("%w: %s/%s changed", docstore.ErrConflict, key.collection, key.id)
		}
	}
	return s.applyLocked(t.writes)
}

func (s *Store) Batch() docstore.Batch {
	return &batch{store: s}
}

func (s *Store) lookupLocked(key docKey) (docstore.Snapshot, uint64) {
	snap := docstore.Snapshot{Collection: key.collection, ID: key.id}
	e, ok := s.cols[key.collection][key.id]
	if !ok {
		return snap, 0
	}
	snap.Data = cloneDoc(e.data)
	snap.Exists = true
	return snap, e.version
}

func (s *Store) versionLocked(key docKey) uint64 {
	return s.cols[key.collection][key.id].version
}

func (s *Store) queryLocked(q docstore.Query) ([]docstore.Snapshot, []uint64) {
	type hit struct {
		id string
		e  entry
	}
	var hits []hit
	for id, e := range s.cols[q.Collection] {
		if matches(e.data, q.Filters) {
			if q.OrderField != "" {
				if _, ok := e.data[q.OrderField]; !ok {
					continue
				}
			}
			hits = append(hits, hit{id: id, e: e})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if q.OrderField != "" {
			c := compare(hits[i].e.data[q.OrderField], hits[j].e.data[q.OrderField])
			if c != 0 {
				if q.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return hits[i].id < hits[j].id
	})

	if q.Max > 0 && len(hits) > q.Max {
		hits = hits[:q.Max]
	}

	snaps := make([]docstore.Snapshot, 0, len(hits))
	versions := make([]uint64, 0, len(hits))
	for _, h := range hits {
		snaps = append(snaps, docstore.Snapshot{
			Collection: q.Collection,
			ID:         h.id,
			Data:       cloneDoc(h.e.data),
			Exists:     true,
		})
		versions = append(versions, h.e.version)
	}
	return snaps, versions
}

func (s *Store) takeFailureLocked() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) putLocked(key docKey, data docstore.Doc) {
	col, ok := s.cols[key.collection]
	if !ok {
		col = map[string]entry{}
		s.cols[key.collection] = col
	}
	s.clock++
	col[key.id] = entry{data: data, version: s.clock}
}

// applyLocked stages every write first so a failing update leaves the store
// untouched.
func (s *Store) applyLocked(writes []write) error {
	staged := map[docKey]docstore.Doc{}
	var order []docKey
	for _, w := range writes {
		if _, seen := staged[w.key]; !seen {
			order = append(order, w.key)
		}
		if w.set != nil {
			staged[w.key] = cloneDoc(w.set)
			continue
		}
		base, ok := staged[w.key]
		if !ok || base == nil {
			current, exists := s.cols[w.key.collection][w.key.id]
			if !exists {
				return fmt.Errorf("%w: %s/%s", docstore.ErrMissingDocument, w.key.collection, w.key.id)
			}
			base = cloneDoc(current.data)
		}
		for _, u := range w.updates {
			setPath(base, u.Path, normalize(u.Value))
		}
		staged[w.key] = base
	}
	for _, key := range order {
		s.putLocked(key, staged[key])
	}
	s.commits++
	return nil
}

type tx struct {
	store  *Store
	reads  map[docKey]uint64
	writes []write
}

func (t *tx) record(key docKey, version uint64) {
	if _, ok := t.reads[key]; !ok {
		t.reads[key] = version
	}
}

func (t *tx) Get(collection, id string) (docstore.Snapshot, error) {
	if len(t.writes) > 0 {
		return docstore.Snapshot{}, docstore.ErrReadAfterWrite
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	key := docKey{collection, id}
	snap, version := t.store.lookupLocked(key)
	t.record(key, version)
	return snap, nil
}

func (t *tx) Query(q docstore.Query) ([]docstore.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	snaps, versions := t.store.queryLocked(q)
	for i, snap := range snaps {
		t.record(docKey{snap.Collection, snap.ID}, versions[i])
	}
	return snaps, nil
}

func (t *tx) Set(collection, id string, data docstore.Doc) error {
	t.writes = append(t.writes, write{key: docKey{collection, id}, set: cloneDoc(data)})
	return nil
}

func (t *tx) Update(collection, id string, updates ...docstore.Update) error {
	if len(updates) == 0 {
		return nil
	}
	t.writes = append(t.writes, write{key: docKey{collection, id}, updates: updates})
	return nil
}

type batch struct {
	store  *Store
	writes []write
}

func (b *batch) Set(collection, id string, data docstore.Doc) {
	b.writes = append(b.writes, write{key: docKey{collection, id}, set: cloneDoc(data)})
}

func (b *batch) Len() int { return len(b.writes) }

func (b *batch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(b.writes) > b.store.maxBatch {
		return fmt.Errorf("%w: %d > %d", docstore.ErrBatchTooLarge, len(b.writes), b.store.maxBatch)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if err := b.store.takeFailureLocked(); err != nil {
		return err
	}
	return b.store.applyLocked(b.writes)
}

func matches(data docstore.Doc, filters []docstore.Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !equal(v, f.Value) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if af, ok := number(a); ok {
		bf, ok := number(b)
		return ok && af == bf
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func setPath(doc docstore.Doc, path []string, value any) {
	if len(path) == 0 {
		return
	}
	cur := doc
	for _, seg := range path[:len(path)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

func cloneDoc(d docstore.Doc) docstore.Doc {
	if d == nil {
		return nil
	}
	out := make(docstore.Doc, len(d))
	for k, v := range d {
		out[k] = normalize(v)
	}
	return out
}

// normalize deep-copies a value into the shapes Firestore hands back.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC()
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC()
	case map[string]any:
		return cloneDoc(x)
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, s := range x {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = item
		}
		return out
	}
	return v
}
