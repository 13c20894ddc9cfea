package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ctxutil "github.com/glycoshape/glyco/internal/testutils/context"
	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/config"
	gerr "github.com/glycoshape/glyco/pkg/errors"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/rest/mock"
)

func logs(messages ...string) []progress.Log {
	ret := []progress.Log{}
	for _, m := range messages {
		ret = append(ret, progress.Log{Timestamp: "t", Message: m})
	}
	return ret
}

func TestTracker(t *testing.T) {
	t.Run("fresh logs are counted against the previous document", func(t *testing.T) {
		testee := &jobs.Tracker{}
		if testee.State() != jobs.StateLoading {
			t.Errorf("unexpected initial state: %s", testee.State())
		}

		type step struct {
			doc   progress.Document
			state jobs.State
			fresh int
		}
		for nth, s := range []step{
			{progress.Document{Status: progress.InProgress, Logs: logs("a")}, jobs.StatePolling, 1},
			{progress.Document{Status: progress.InProgress, Logs: logs("a")}, jobs.StatePolling, 0},
			{progress.Document{Status: progress.InProgress, Logs: logs("a", "b", "c")}, jobs.StatePolling, 2},
			{progress.Document{Status: progress.InProgress, Logs: logs("a")}, jobs.StatePolling, 0},
			{progress.Document{Status: progress.Finished, Logs: logs("a", "b")}, jobs.StateTerminal, 1},
		} {
			u, changed := testee.Apply(s.doc)
			if !changed {
				t.Errorf("#%d: not applied", nth)
			}
			if u.State != s.state || u.FreshLogs != s.fresh {
				t.Errorf("#%d: unexpected update: state = %s, fresh = %d", nth, u.State, u.FreshLogs)
			}
			if len(u.Fresh()) != s.fresh {
				t.Errorf("#%d: unexpected fresh entries: %v", nth, u.Fresh())
			}
		}
	})

	t.Run("it never goes back from terminal", func(t *testing.T) {
		for _, terminal := range []progress.Status{progress.Finished, progress.Error} {
			testee := &jobs.Tracker{}
			testee.Apply(progress.Document{Status: terminal, Progress: 100})

			u, changed := testee.Apply(progress.Document{Status: progress.InProgress, Progress: 50})
			if changed {
				t.Errorf("%s: in_progress is applied after terminal", terminal)
			}
			if u.State != jobs.StateTerminal || u.Document.Status != terminal || testee.Document().Progress != 100 {
				t.Errorf("%s: unexpected update: %+v", terminal, u)
			}
		}
	})

	t.Run("the first terminal document wins", func(t *testing.T) {
		type when struct {
			first progress.Status
			then  progress.Status
		}
		theory := func(when when) func(*testing.T) {
			return func(t *testing.T) {
				testee := &jobs.Tracker{}
				testee.Apply(progress.Document{Status: when.first, Progress: 100, Logs: logs("a")})

				u, changed := testee.Apply(progress.Document{Status: when.then, Progress: 90, Logs: logs("a", "b")})
				if changed {
					t.Errorf("%s is applied after %s", when.then, when.first)
				}
				if u.State != jobs.StateTerminal || u.FreshLogs != 0 {
					t.Errorf("unexpected update: %+v", u)
				}
				if doc := testee.Document(); doc.Status != when.first || doc.Progress != 100 || len(doc.Logs) != 1 {
					t.Errorf("document is replaced: %+v", doc)
				}
			}
		}

		t.Run("finished then error", theory(when{first: progress.Finished, then: progress.Error}))
		t.Run("error then finished", theory(when{first: progress.Error, then: progress.Finished}))
		t.Run("finished then finished", theory(when{first: progress.Finished, then: progress.Finished}))
	})
}

func pollConfig() config.Config {
	conf := config.Default()
	conf.PollInterval = time.Millisecond
	return conf
}

func TestPoller_Watch(t *testing.T) {
	t.Run("it continues over a failed tick and stops on terminal", func(t *testing.T) {
		responses := []func() (progress.Document, error){
			func() (progress.Document, error) {
				return progress.Document{}, gerr.Status(500, "server error", "")
			},
			func() (progress.Document, error) {
				return progress.Document{JobId: "job1", Status: progress.InProgress, Progress: 40, Logs: logs("start")}, nil
			},
			func() (progress.Document, error) {
				return progress.Document{}, gerr.Transport(errors.New("reset"))
			},
			func() (progress.Document, error) {
				return progress.Document{JobId: "job1", Status: progress.InProgress, Progress: 40, Logs: logs("start")}, nil
			},
			func() (progress.Document, error) {
				return progress.Document{
					JobId: "job1", Status: progress.Finished, Progress: 100,
					Logs:   logs("start", "done"),
					Images: []progress.Image{{ImageURL: "job1/plot.png", Caption: "plot"}},
				}, nil
			},
		}
		client := mock.New(t)
		client.Impl.GetProgress = func(ctx context.Context, jobId string) (progress.Document, error) {
			if jobId != "job1" {
				t.Errorf("unexpected job id: %s", jobId)
			}
			if _, ok := ctx.Deadline(); !ok {
				t.Error("fetch has no deadline")
			}
			if len(responses) == 0 {
				t.Fatal("polled after terminal")
			}
			r := responses[0]
			responses = responses[1:]
			return r()
		}

		updates := []jobs.Update{}
		testee := jobs.NewPoller(client, pollConfig(), jobs.WithObserver(func(u jobs.Update) {
			updates = append(updates, u)
		}))

		doc, err := testee.Watch(ctxutil.WithTest(t, 10*time.Second), "job1")
		if err != nil {
			t.Fatal(err)
		}
		if doc.Status != progress.Finished || doc.Progress != 100 {
			t.Errorf("unexpected document: %+v", doc)
		}
		if len(client.Calls.GetProgress) != 5 {
			t.Errorf("unexpected number of polls: %d", len(client.Calls.GetProgress))
		}

		type expected struct {
			state  jobs.State
			failed bool
			fresh  int
		}
		want := []expected{
			{jobs.StateLoading, true, 0},
			{jobs.StatePolling, false, 1},
			{jobs.StatePolling, true, 0},
			{jobs.StatePolling, false, 0},
			{jobs.StateTerminal, false, 1},
		}
		if len(updates) != len(want) {
			t.Fatalf("unexpected updates: %+v", updates)
		}
		for nth, w := range want {
			u := updates[nth]
			if u.State != w.state || (u.Err != nil) != w.failed || u.FreshLogs != w.fresh || u.Handle != "job1" {
				t.Errorf("#%d: unexpected update: %+v", nth, u)
			}
		}
	})

	t.Run("it stops when the context is cancelled", func(t *testing.T) {
		client := mock.New(t)
		polled := make(chan struct{}, 100)
		client.Impl.GetProgress = func(ctx context.Context, jobId string) (progress.Document, error) {
			polled <- struct{}{}
			return progress.Document{JobId: jobId, Status: progress.InProgress}, nil
		}

		var mu sync.Mutex
		last := jobs.Update{}
		testee := jobs.NewPoller(client, pollConfig(), jobs.WithObserver(func(u jobs.Update) {
			mu.Lock()
			defer mu.Unlock()
			last = u
		}))

		w := testee.Start(ctxutil.WithTest(t, 10*time.Second), "job1")
		<-polled
		<-polled
		w.Stop()
		w.Stop()

		select {
		case <-w.Done():
		default:
			t.Error("not done after Stop")
		}
		doc, err := w.Result()
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if doc.Status != progress.InProgress {
			t.Errorf("unexpected document: %+v", doc)
		}
		mu.Lock()
		defer mu.Unlock()
		if last.State != jobs.StatePolling {
			t.Errorf("unexpected last state: %s", last.State)
		}
	})

	t.Run("without documents, the result is loading state", func(t *testing.T) {
		client := mock.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		client.Impl.GetProgress = func(context.Context, string) (progress.Document, error) {
			cancel()
			return progress.Document{}, gerr.Status(404, "not found", "")
		}
		testee := jobs.NewPoller(client, pollConfig())
		doc, err := testee.Watch(ctx, "job1")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if !doc.Equal(progress.Document{}) {
			t.Errorf("unexpected document: %+v", doc)
		}
	})
}
