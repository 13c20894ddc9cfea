package context

import (
	"context"
	"testing"
	"time"
)

// WithTest returns a context for polling in a test.
//
// It is cancelled 1 second before the test's deadline so that pollers stop and
// report, or after timeout when the test has no deadline. It is cancelled also on cleanup.
func WithTest(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	deadline := time.Now().Add(timeout)
	if d, ok := t.Deadline(); ok && d.Add(-time.Second).Before(deadline) {
		deadline = d.Add(-time.Second)
	}
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	t.Cleanup(cancel)
	return ctx
}
