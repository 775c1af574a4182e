package txn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/docstore"
	"resitrack/backend/internal/docstore/memstore"
)

// contendedStore loses the first `conflicts` transactions.
type contendedStore struct {
	*memstore.Store
	conflicts int32
	calls     atomic.Int32
}

func (s *contendedStore) RunTransaction(ctx context.Context, fn func(context.Context, docstore.Tx) error) error {
	n := s.calls.Add(1)
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if n <= s.conflicts {
			return fmt.Errorf("%w: injected", docstore.ErrConflict)
		}
		return nil
	})
}

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func newTestRunner(t *testing.T, store docstore.Store, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithPolicy(fastPolicy(5)), WithInlineHooks()}, opts...)
	r, err := NewRunner(store, opts...)
	require.NoError(t, err)
	return r
}

func TestRunRetriesContention(t *testing.T) {
	store := &contendedStore{Store: memstore.New(), conflicts: 2}
	r := newTestRunner(t, store)

	var hookRuns int
	err := r.Run(context.Background(), "counter", func(ctx context.Context, tx docstore.Tx, after *AfterCommit) error {
		after.Add("count", func(context.Context) error {
			hookRuns++
			return nil
		})
		return tx.Set("c", "a", docstore.Doc{"n": 1})
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), store.calls.Load())
	assert.Equal(t, 1, hookRuns)
}

func TestRunExhaustsBudget(t *testing.T) {
	store := &contendedStore{Store: memstore.New(), conflicts: 100}
	r := newTestRunner(t, store)

	hookRan := false
	err := r.Run(context.Background(), "hot", func(ctx context.Context, tx docstore.Tx, after *AfterCommit) error {
		after.Add("never", func(context.Context) error {
			hookRan = true
			return nil
		})
		return tx.Set("c", "a", docstore.Doc{})
	})
	require.Error(t, err)
	assert.True(t, apperr.IsErrConflict(err))
	assert.True(t, docstore.IsErrConflict(err))
	assert.Equal(t, int32(5), store.calls.Load())
	assert.False(t, hookRan)
	assert.Equal(t, 0, store.Count("c"))
}

func TestRunDoesNotRetryWorkErrors(t *testing.T) {
	store := &contendedStore{Store: memstore.New()}
	r := newTestRunner(t, store)

	sentinel := errors.New("slot already held")
	err := r.Run(context.Background(), "reserve", func(context.Context, docstore.Tx, *AfterCommit) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, apperr.IsErrConflict(err))
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestRunStopsOnCancelBetweenAttempts(t *testing.T) {
	store := &contendedStore{Store: memstore.New(), conflicts: 100}
	r, err := NewRunner(store, WithPolicy(Policy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err = r.Run(ctx, "slow", func(ctx context.Context, tx docstore.Tx, _ *AfterCommit) error {
		return tx.Set("c", "a", docstore.Doc{})
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHookFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := newTestRunner(t, memstore.New(), WithLogger(zap.New(core)))

	err := r.Run(context.Background(), "notify", func(ctx context.Context, tx docstore.Tx, after *AfterCommit) error {
		after.Add("fails", func(context.Context) error { return errors.New("smtp down") })
		after.Add("panics", func(context.Context) error { panic("boom") })
		return tx.Set("c", "a", docstore.Doc{})
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("post-commit hook failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "fails", entries[0].ContextMap()["hook"])
	assert.Equal(t, "panics", entries[1].ContextMap()["hook"])
}

func TestHooksOutliveCallerContext(t *testing.T) {
	r, err := NewRunner(memstore.New(), WithPolicy(fastPolicy(3)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var hookErr atomic.Value

	err = r.Run(ctx, "async", func(ctx context.Context, tx docstore.Tx, after *AfterCommit) error {
		after.Add("late", func(hctx context.Context) error {
			<-release
			hookErr.Store(fmt.Sprint(hctx.Err()))
			return nil
		})
		return tx.Set("c", "a", docstore.Doc{})
	})
	require.NoError(t, err)

	cancel()
	close(release)
	r.Wait()
	assert.Equal(t, "<nil>", hookErr.Load())
}

func TestRunSerialisesConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.Set(ctx, "counters", "c", docstore.Doc{"n": 0}))
	r, err := NewRunner(store, WithPolicy(fastPolicy(100)))
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Run(ctx, "increment", func(ctx context.Context, tx docstore.Tx, _ *AfterCommit) error {
				snap, err := tx.Get("counters", "c")
				if err != nil {
					return err
				}
				return tx.Update("counters", "c", docstore.Field(docstore.Int(snap.Data, "n")+1, "n"))
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	snap, err := store.Get(ctx, "counters", "c")
	require.NoError(t, err)
	assert.Equal(t, workers, docstore.Int(snap.Data, "n"))
}

func TestBatchCommitsThenRunsHooks(t *testing.T) {
	store := memstore.New()
	r := newTestRunner(t, store)

	var ran []string
	err := r.Batch(context.Background(), "fanout", func(b docstore.Batch, after *AfterCommit) error {
		b.Set("c", "1", docstore.Doc{})
		b.Set("c", "2", docstore.Doc{})
		after.Add("one", func(context.Context) error { ran = append(ran, "one"); return nil })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count("c"))
	assert.Equal(t, []string{"one"}, ran)
}

func TestBatchFailureSkipsHooks(t *testing.T) {
	store := memstore.New()
	store.FailNextCommit(docstore.ErrUnavailable)
	r := newTestRunner(t, store)

	ran := false
	err := r.Batch(context.Background(), "fanout", func(b docstore.Batch, after *AfterCommit) error {
		b.Set("c", "1", docstore.Doc{})
		after.Add("one", func(context.Context) error { ran = true; return nil })
		return nil
	})
	assert.True(t, apperr.IsErrExternal(err))
	assert.False(t, ran)
	assert.Equal(t, 0, store.Count("c"))
}
