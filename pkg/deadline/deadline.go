// Package deadline bounds how long a caller waits for an operation.
//
// Run races the operation against a timer. When the timer wins the caller
// gets a *TimeoutError straight away, but the operation itself is not
// cancelled: it keeps running on its own goroutine and its result is
// dropped when it eventually arrives.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError is returned by Run when the timer fires before the operation completes.
type TimeoutError struct {
	Label   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %dms", e.Label, e.Timeout.Milliseconds())
}

// PanicError carries a panic raised by the operation back to the caller.
// Run starts the operation on its own goroutine, where no caller-side
// recover would see it.
type PanicError struct {
	Label string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Label, e.Value)
}

// IsTimeout reports whether err, or anything it wraps, is a deadline overrun.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

type result[T any] struct {
	val T
	err error
}

// Run waits at most timeout for op to return. label names the operation in
// the timeout error message.
//
// op receives a context that carries ctx's values but not its cancellation,
// so the operation runs to completion even after Run has given up on it.
// If ctx itself is done first, Run returns ctx.Err().
func Run[T any](ctx context.Context, timeout time.Duration, label string, op func(context.Context) (T, error)) (T, error) {
	// Buffered so a late result never blocks the losing goroutine.
	done := make(chan result[T], 1)
	opCtx := context.WithoutCancel(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: &PanicError{Label: label, Value: r}}
			}
		}()
		v, err := op(opCtx)
		done <- result[T]{v, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case r := <-done:
		return r.val, r.err
	case <-timer.C:
		return zero, &TimeoutError{Label: label, Timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
