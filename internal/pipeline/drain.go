package pipeline

import (
	"context"
	"errors"
)

// PanicHandler is called with the item whose handler panicked and the
// recovered value.
type PanicHandler[T any] func(item T, recovered any)

// Drain is the single consumer of q. It pops items in FIFO order and calls
// handle for each one sequentially.
//
// A panic in handle is recovered and passed to onPanic (which may be nil);
// the loop then continues with the next item. Drain returns nil once q is
// closed and empty, or ctx.Err() when ctx ends first.
func Drain[T any](ctx context.Context, q *Queue[T], handle func(context.Context, T), onPanic PanicHandler[T]) error {
	for {
		item, err := q.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		runSafely(ctx, item, handle, onPanic)
	}
}

func runSafely[T any](ctx context.Context, item T, handle func(context.Context, T), onPanic PanicHandler[T]) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(item, r)
		}
	}()
	handle(ctx, item)
}
