// Package replay drives a paging engine through a reference trace, one
// reference at a time, optionally pacing the references so that a viewer can
// follow along.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/pagesim/pagetable"
)

// A Referencer can perform page references and report its state.
type Referencer interface {
	Reference(page int, isWrite bool) (pagetable.Outcome, error)
	Snapshot() pagetable.Snapshot
}

// Step is the result of replaying a single reference. Err is set when the
// engine rejected the reference; Outcome is then empty.
type Step struct {
	Index     int                 `json:"index"`
	Reference pagetable.Reference `json:"reference"`
	Outcome   pagetable.Outcome   `json:"outcome"`
	Err       error               `json:"-"`
}

func (s Step) String() string {
	if s.Err != nil {
		return fmt.Sprintf("Step %d: ERROR: %s", s.Index, s.Err)
	}

	return fmt.Sprintf("Step %d: %s", s.Index, s.Outcome)
}

// A Sink receives every step in order. Sinks may call the read-only methods of
// the Replayer but must not step it.
type Sink interface {
	Accept(step Step)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(step Step)

// Accept calls f(step).
func (f SinkFunc) Accept(step Step) {
	f(step)
}

// A Replayer feeds a trace to an engine. All its methods are safe for
// concurrent use.
type Replayer struct {
	id    string
	delay time.Duration

	stepLock sync.Mutex
	sinks    []Sink

	lock   sync.Mutex
	engine Referencer
	refs   []pagetable.Reference
	next   int
	paused bool
	resume chan struct{}
}

// NewReplayer creates a replayer that has not performed any reference yet.
func NewReplayer(
	engine Referencer,
	refs []pagetable.Reference,
) *Replayer {
	return &Replayer{
		id:     xid.New().String(),
		engine: engine,
		refs:   append([]pagetable.Reference(nil), refs...),
	}
}

// WithDelay sets the pause between two references during Run.
func (r *Replayer) WithDelay(delay time.Duration) *Replayer {
	r.delay = delay
	return r
}

// ID returns the unique ID of this replay run.
func (r *Replayer) ID() string {
	return r.id
}

// AddSink registers a sink.
func (r *Replayer) AddSink(s Sink) {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	r.sinks = append(r.sinks, s)
}

// Len returns the number of references in the trace.
func (r *Replayer) Len() int {
	return len(r.refs)
}

// Position returns the number of references already replayed.
func (r *Replayer) Position() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.next
}

// Done tells if the whole trace has been replayed.
func (r *Replayer) Done() bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.next >= len(r.refs)
}

// Snapshot returns the current state of the engine.
func (r *Replayer) Snapshot() pagetable.Snapshot {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.engine.Snapshot()
}

// Step replays the next reference. It returns false if the trace is
// exhausted. Steps are allowed while the replayer is paused.
func (r *Replayer) Step() (Step, bool) {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	step, ok := r.advance()
	if !ok {
		return Step{}, false
	}

	for _, s := range r.sinks {
		s.Accept(step)
	}

	return step, true
}

func (r *Replayer) advance() (Step, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.next >= len(r.refs) {
		return Step{}, false
	}

	ref := r.refs[r.next]
	r.next++

	outcome, err := r.engine.Reference(ref.Page, ref.Operation.IsWrite())

	return Step{
		Index:     r.next,
		Reference: ref,
		Outcome:   outcome,
		Err:       err,
	}, true
}

// Pause stops Run before its next reference.
func (r *Replayer) Pause() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.paused {
		return
	}

	r.paused = true
	r.resume = make(chan struct{})
}

// Continue lets a paused Run proceed.
func (r *Replayer) Continue() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.paused {
		return
	}

	r.paused = false
	close(r.resume)
}

// Paused tells if the replayer is paused.
func (r *Replayer) Paused() bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.paused
}

// Run replays the rest of the trace, waiting for the delay between two
// references. It returns nil once the trace is exhausted, or the context error
// if the context is done first.
func (r *Replayer) Run(ctx context.Context) error {
	for {
		if err := r.waitWhilePaused(ctx); err != nil {
			return err
		}

		if _, ok := r.Step(); !ok || r.Done() {
			return nil
		}

		if err := r.sleep(ctx); err != nil {
			return err
		}
	}
}

func (r *Replayer) waitWhilePaused(ctx context.Context) error {
	r.lock.Lock()
	paused, resume := r.paused, r.resume
	r.lock.Unlock()

	if !paused {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-resume:
		return r.waitWhilePaused(ctx)
	}
}

func (r *Replayer) sleep(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
