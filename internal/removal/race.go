package removal

import (
	"context"
	"time"
)

type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeTimedOut
	outcomeErr
)

// outcome is the tagged three-way result of racing a removal task against
// its deadline.
type outcome struct {
	kind   outcomeKind
	output *Output
	err    error
}

// race runs fn under a deadline. A task that outlives the deadline keeps
// running in the background; its result is dropped.
func race(ctx context.Context, d time.Duration, fn func(context.Context) (*Output, error)) outcome {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		out *Output
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := fn(ctx)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return outcome{kind: outcomeTimedOut}
			}
			return outcome{kind: outcomeErr, err: r.err}
		}
		return outcome{kind: outcomeOK, output: r.out}
	case <-ctx.Done():
		return outcome{kind: outcomeTimedOut}
	}
}
