package executor

import (
	"context"
)

type ctxKeyExecutor struct{}

// CtxWithExecutor marks ctx as belonging to a task running on e. Passing
// a nil e clears the mark, which is what goroutines spawned from a task
// should do.
func CtxWithExecutor(ctx context.Context, e *Executor) context.Context {
	return context.WithValue(ctx, ctxKeyExecutor{}, e)
}

// FromCtx returns the executor the current task is running on, if any.
func FromCtx(ctx context.Context) *Executor {
	e, _ := ctx.Value(ctxKeyExecutor{}).(*Executor)
	return e
}

// IsCurrent reports whether ctx belongs to a task running on e.
func (e *Executor) IsCurrent(ctx context.Context) bool {
	return FromCtx(ctx) == e
}
