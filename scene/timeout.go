package scene

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

type guardResult[T any] struct {
	value T
	err   error
}

// WithTimeout runs op and waits at most timeout for it to finish.
//
// If op finishes first, its result is returned. If the timer fires first, the result is a
// *TimeoutError carrying the source location of the WithTimeout call; the context passed to op is
// cancelled at that point, but WithTimeout does not wait for op to return. If ctx is cancelled
// first, ctx.Err() is returned. A non-positive timeout means there is no deadline.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	return guard(ctx, timeout, callerSite(2), op)
}

// Await is WithTimeout for operations without a result.
func Await(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	_, err := guard(ctx, timeout, callerSite(2), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func guard[T any](ctx context.Context, timeout time.Duration, site CallSite, op func(context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered, so that an abandoned operation can still finish without blocking
	done := make(chan guardResult[T], 1)
	go func() {
		var r guardResult[T]
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("unexpected panic in awaited operation: %v", p)
			}
			done <- r
		}()
		r.value, r.err = op(opCtx)
	}()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var zero T
	select {
	case r := <-done:
		return r.value, r.err
	case <-deadline:
		return zero, &TimeoutError{Timeout: timeout, Site: site}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func callerSite(skip int) CallSite {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallSite{}
	}
	return CallSite{File: file, Line: line}
}
