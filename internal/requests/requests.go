// Package requests tracks in-flight backend requests by id so views can
// wait on exactly the requests they depend on.
package requests

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out request ids.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator returns random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// CounterGenerator returns "<prefix><n>" for n = 1, 2, ...
type CounterGenerator struct {
	Prefix string
	n      atomic.Uint64
}

func (g *CounterGenerator) NewID() string {
	return g.Prefix + strconv.FormatUint(g.n.Add(1), 10)
}

type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusError
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "unknown"
	}
}

type entry struct {
	status Status
	err    error
}

// Tracker records the status of each tracked request id.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Start marks id as pending.
func (t *Tracker) Start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = &entry{status: StatusPending}
}

// Complete records the outcome of id. Completions of ids that are not
// tracked (never started, or forgotten because a newer request replaced
// them) are ignored and reported as false.
func (t *Tracker) Complete(id string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return false
	}
	if err != nil {
		e.status, e.err = StatusError, err
	} else {
		e.status, e.err = StatusSuccess, nil
	}
	return true
}

// Forget stops tracking id.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

func (t *Tracker) Status(id string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		return e.status
	}
	return StatusUnknown
}

// State aggregates ids: pending if any is pending or untracked, error if any
// failed (with the first error in ids order), success otherwise.
func (t *Tracker) State(ids ...string) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for _, id := range ids {
		e, ok := t.entries[id]
		if !ok || e.status == StatusPending {
			return StatusPending, nil
		}
		if e.status == StatusError && firstErr == nil {
			firstErr = e.err
		}
	}
	if firstErr != nil {
		return StatusError, firstErr
	}
	return StatusSuccess, nil
}

// ShouldRender reports whether a view depending on ids may render: all of
// them succeeded, or there are none and the view renders optimistically.
func (t *Tracker) ShouldRender(ids []string, optimistic bool) bool {
	if len(ids) == 0 {
		return optimistic
	}
	status, _ := t.State(ids...)
	return status == StatusSuccess
}

// Dispatcher starts tracked requests.
type Dispatcher struct {
	ids     IDGenerator
	tracker *Tracker
	wg      sync.WaitGroup
}

func NewDispatcher(ids IDGenerator, tracker *Tracker) *Dispatcher {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Dispatcher{ids: ids, tracker: tracker}
}

func (d *Dispatcher) Tracker() *Tracker { return d.tracker }

// Go runs fn in its own goroutine under a new request id and returns the id.
func (d *Dispatcher) Go(ctx context.Context, fn func(ctx context.Context) error) string {
	id := d.ids.NewID()
	d.tracker.Start(id)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.tracker.Complete(id, fn(ctx))
	}()
	return id
}

// Do runs fn synchronously under a new request id.
func (d *Dispatcher) Do(ctx context.Context, fn func(ctx context.Context) error) (string, error) {
	id := d.ids.NewID()
	d.tracker.Start(id)
	err := fn(ctx)
	d.tracker.Complete(id, err)
	return id, err
}

// Wait blocks until every request started with Go has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
