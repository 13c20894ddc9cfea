package loop

import (
	"context"
	"fmt"
	"time"
)

type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}

	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// continue loop.
//
// args:
//
// - interval: sleep before starting next task.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// break loop.
//
// args:
//
// - err: If you break loop with error, set non nil value.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is a body of the loop.
//
// It receives (sub-)context and the value returned by the last iteration.
type Task[T any] func(context.Context, T) (T, Next)

// Start task in loop.
//
// The task returns a new value and what to do next:
// Continue(interval) to be called again with that value after interval,
// or Break(err) to quit. Zero value (Next{}) equals Continue(0).
//
// # Example
//
// Poll a progress document until it is settled:
//
//	Start(ctx, Progress{}, func(ctx context.Context, last Progress) (Progress, Next) {
//		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
//		if err != nil {
//			return last, Break(err)
//		}
//		resp, err := http.DefaultClient.Do(req)
//		if err != nil {
//			return last, Continue(3 * time.Second) // try again on next tick
//		}
//		defer resp.Body.Close()
//
//		var p Progress
//		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
//			return last, Continue(3 * time.Second)
//		}
//		if p.Status != "in_progress" {
//			return p, Break(nil)
//		}
//		return p, Continue(3 * time.Second)
//	})
//
// # Args
//
// - ctx : context. When this context get be Done, loop will be break with ctx.Err().
//
// - init : your task will be called as task(ctx, init) at the first time.
//
// - task : task receiving (context, last value), then return (new value, Continue() or Break()).
//
// - options: options for loop.
//
// # Returns
//
// - T: T task returns at last.
// This value is always returned wheather or not it returns non-nil error together.
//
// - error: error in Break(error). It is nil when loop breaks with Break(nil).
func Start[T any](ctx context.Context, init T, task Task[T], options ...LoopOption) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		lc := &loopConfig{ctx: ctx}
		for _, opt := range options {
			lc = opt(lc)
		}

		v, n := func() (T, Next) {
			if lc.deferred != nil {
				defer lc.deferred()
			}
			return task(lc.ctx, value)
		}()

		if n.err != nil {
			return v, n.err
		}
		value = v
		if n.quit {
			return value, nil
		}

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			// shutting down comes first. the timer is checked later.
			if !timer.Stop() {
				<-timer.C
			}
			return value, ctx.Err()

		case <-timer.C:
			continue
		}
	}
}

type loopConfig struct {
	ctx      context.Context
	deferred func()
}

type LoopOption func(*loopConfig) *loopConfig

// set timeout per iteration
//
// this timeout is set on context.Context passed to task.
// The loop itself is not affected; the next iteration gets a fresh deadline.
func WithTimeout(d time.Duration) LoopOption {
	return func(lc *loopConfig) *loopConfig {
		ctx, cancel := context.WithTimeout(lc.ctx, d)
		return &loopConfig{
			ctx: ctx,
			deferred: func() {
				if lc.deferred != nil {
					defer lc.deferred()
				}
				cancel()
			},
		}
	}
}
