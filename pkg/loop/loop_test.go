package loop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glycoshape/glyco/pkg/loop"
)

func TestStart(t *testing.T) {
	t.Run("it repeats tasks until the task breaks", func(t *testing.T) {
		actual, err := loop.Start(
			context.Background(), 1,
			func(_ context.Context, v int) (int, loop.Next) {
				v += 1
				if 10 <= v {
					return v, loop.Break(nil)
				}
				return v, loop.Continue(0)
			},
		)
		if err != nil {
			t.Fatal(err)
		}
		if actual != 10 {
			t.Errorf("unexpected result: (actual, expected) = (%d, %d)", actual, 10)
		}
	})

	t.Run("it returns the error and the last value passed to Break", func(t *testing.T) {
		expectedErr := errors.New("fake error")
		actual, err := loop.Start(
			context.Background(), 0,
			func(_ context.Context, v int) (int, loop.Next) {
				if v == 3 {
					return v, loop.Break(expectedErr)
				}
				return v + 1, loop.Continue(time.Millisecond)
			},
		)
		if !errors.Is(err, expectedErr) {
			t.Errorf("unexpected error: %v", err)
		}
		if actual != 3 {
			t.Errorf("unexpected result: (actual, expected) = (%d, %d)", actual, 3)
		}
	})

	t.Run("it stops when context is done, returning the latest value", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		actual, err := loop.Start(
			ctx, 0,
			func(_ context.Context, v int) (int, loop.Next) {
				if v == 2 {
					cancel()
					return v + 1, loop.Continue(time.Hour)
				}
				return v + 1, loop.Continue(time.Millisecond)
			},
		)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected error (Canceled) is not returned: %v", err)
		}
		if actual != 3 {
			t.Errorf("unexpected result: (actual, expected) = (%d, %d)", actual, 3)
		}
	})

	t.Run("it does not start a task when context is done already", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		actual, err := loop.Start(
			ctx, 42,
			func(_ context.Context, v int) (int, loop.Next) {
				called = true
				return v, loop.Break(nil)
			},
		)
		if called {
			t.Error("task is called")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected error (Canceled) is not returned: %v", err)
		}
		if actual != 42 {
			t.Errorf("unexpected result: (actual, expected) = (%d, %d)", actual, 42)
		}
	})

	t.Run("it passes deadlined context for each iteration when WithTimeout is passed", func(t *testing.T) {
		timeout := 50 * time.Millisecond
		deadlines := []time.Time{}

		_, err := loop.Start(
			context.Background(), 0,
			func(ctx context.Context, v int) (int, loop.Next) {
				d, ok := ctx.Deadline()
				if !ok {
					t.Error("context has no deadline")
				}
				deadlines = append(deadlines, d)
				if v == 1 {
					return v, loop.Break(nil)
				}
				return v + 1, loop.Continue(10 * time.Millisecond)
			},
			loop.WithTimeout(timeout),
		)
		if err != nil {
			t.Fatal(err)
		}
		if len(deadlines) != 2 {
			t.Fatalf("unexpected iterations: %d", len(deadlines))
		}
		if !deadlines[0].Before(deadlines[1]) {
			t.Errorf("deadline is not renewed: %v, %v", deadlines[0], deadlines[1])
		}
	})
}
