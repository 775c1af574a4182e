package txn

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Hook is a side effect that may only happen once the commit is durable.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// AfterCommit collects hooks registered by one attempt. A retried attempt
// starts with an empty list, so hooks of a lost attempt never run.
type AfterCommit struct {
	hooks []namedHook
}

func (a *AfterCommit) Add(name string, fn Hook) {
	if a == nil || fn == nil {
		return
	}
	a.hooks = append(a.hooks, namedHook{name: name, fn: fn})
}

func (a *AfterCommit) Len() int {
	if a == nil {
		return 0
	}
	return len(a.hooks)
}

func (a *AfterCommit) reset() {
	a.hooks = a.hooks[:0]
}

func (r *Runner) runHooks(ctx context.Context, txName string, after *AfterCommit) {
	if after.Len() == 0 {
		return
	}
	hooks := append([]namedHook(nil), after.hooks...)
	hctx := context.WithoutCancel(ctx)

	if r.inline {
		r.execHooks(hctx, txName, hooks)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execHooks(hctx, txName, hooks)
	}()
}

func (r *Runner) execHooks(ctx context.Context, txName string, hooks []namedHook) {
	for _, h := range hooks {
		if err := safeCall(ctx, h.fn); err != nil {
			r.logger.Warn("post-commit hook failed",
				zap.String("tx", txName),
				zap.String("hook", h.name),
				zap.Error(err),
			)
		}
	}
}

func safeCall(ctx context.Context, fn Hook) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}
