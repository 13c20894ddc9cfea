package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/config"
	"github.com/glycoshape/glyco/pkg/loop"
	"github.com/glycoshape/glyco/pkg/rest"
)

type State int

const (
	// no document is fetched yet
	StateLoading State = iota

	// the job is running
	StatePolling

	// the job has finished or failed
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePolling:
		return "polling"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Update is what a poller tells its observers on each tick.
type Update struct {
	Handle string
	State  State

	// the latest document. Zero while State is StateLoading.
	Document progress.Document

	// number of log entries which arrived in this tick.
	// They are the last FreshLogs entries of Document.Logs .
	FreshLogs int

	// Err is not nil when this tick failed to fetch. Polling goes on.
	Err error
}

// Fresh returns log entries arrived in this tick.
func (u Update) Fresh() []progress.Log {
	logs := u.Document.Logs
	return logs[len(logs)-u.FreshLogs:]
}

type Observer func(Update)

// Tracker holds the latest progress document of a job.
//
// The zero value is a Tracker in StateLoading.
type Tracker struct {
	state State
	doc   progress.Document
}

func (t *Tracker) State() State {
	return t.state
}

func (t *Tracker) Document() progress.Document {
	return t.doc
}

// Apply replaces the held document with doc.
//
// Once a terminal document is applied, any later document is ignored,
// terminal or not. In that case, the returned bool is false.
func (t *Tracker) Apply(doc progress.Document) (Update, bool) {
	if t.state == StateTerminal {
		return Update{State: t.state, Document: t.doc}, false
	}

	fresh := len(doc.Logs) - len(t.doc.Logs)
	if fresh < 0 {
		fresh = 0
	}

	t.doc = doc
	if doc.Status.Terminal() {
		t.state = StateTerminal
	} else {
		t.state = StatePolling
	}
	return Update{State: t.state, Document: t.doc, FreshLogs: fresh}, true
}

// DefaultRequestTimeout bounds each fetch of a progress document.
const DefaultRequestTimeout = 30 * time.Second

// Poller fetches progress documents of jobs at a fixed interval.
type Poller struct {
	client    rest.GlycoClient
	interval  time.Duration
	timeout   time.Duration
	observers []Observer
}

type PollerOption func(*Poller) *Poller

// WithObserver adds an observer called on every tick, in the polling goroutine.
func WithObserver(o Observer) PollerOption {
	return func(p *Poller) *Poller {
		p.observers = append(p.observers, o)
		return p
	}
}

// WithRequestTimeout sets timeout of each fetch.
func WithRequestTimeout(d time.Duration) PollerOption {
	return func(p *Poller) *Poller {
		if 0 < d {
			p.timeout = d
		}
		return p
	}
}

func NewPoller(client rest.GlycoClient, conf config.Config, options ...PollerOption) *Poller {
	p := &Poller{
		client:   client,
		interval: conf.PollInterval,
		timeout:  DefaultRequestTimeout,
	}
	if p.interval <= 0 {
		p.interval = config.DefaultPollInterval
	}
	for _, o := range options {
		p = o(p)
	}
	return p
}

func (p *Poller) notify(u Update) {
	for _, o := range p.observers {
		o(u)
	}
}

// Watch polls the job until it gets terminal.
//
// Failed fetches are told to observers and retried on the next tick.
//
// # Returns
//
// - progress.Document: the last document. It is terminal unless error is returned.
//
// - error: ctx.Err() when ctx is done before the job gets terminal.
func (p *Poller) Watch(ctx context.Context, handle string) (progress.Document, error) {
	tracker, err := loop.Start(
		ctx, &Tracker{},
		func(ctx context.Context, t *Tracker) (*Tracker, loop.Next) {
			doc, err := p.client.GetProgress(ctx, handle)
			if err != nil {
				p.notify(Update{Handle: handle, State: t.State(), Document: t.Document(), Err: err})
				return t, loop.Continue(p.interval)
			}

			u, changed := t.Apply(doc)
			u.Handle = handle
			if changed {
				p.notify(u)
			}
			if t.State() == StateTerminal {
				return t, loop.Break(nil)
			}
			return t, loop.Continue(p.interval)
		},
		loop.WithTimeout(p.timeout),
	)
	return tracker.Document(), err
}

// Watching is a Watch running in background.
type Watching struct {
	cancel func()
	done   chan struct{}

	mu  sync.Mutex
	doc progress.Document
	err error
}

// Start runs Watch in a new goroutine.
func (p *Poller) Start(ctx context.Context, handle string) *Watching {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watching{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		defer cancel()
		doc, err := p.Watch(ctx, handle)
		w.mu.Lock()
		defer w.mu.Unlock()
		w.doc, w.err = doc, err
	}()
	return w
}

// Done is closed when watching is over.
func (w *Watching) Done() <-chan struct{} {
	return w.done
}

// Stop cancels watching and waits it to end. It is safe to call Stop many times.
func (w *Watching) Stop() {
	w.cancel()
	<-w.done
}

// Result returns the result of Watch. It is valid after Done is closed.
func (w *Watching) Result() (progress.Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc, w.err
}
