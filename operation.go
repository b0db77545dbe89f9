package onevpl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/surface"
)

// OperationState is the lifecycle position of an Operation.
type OperationState int

const (
	// StateIdle is an operation not yet accepted by the engine.
	StateIdle OperationState = iota
	// StateSubmitted means the engine accepted the work; its output is
	// provisional.
	StateSubmitted
	// StateReady means synchronization succeeded and the output is valid.
	StateReady
	// StateConsumed means the output was handed over or released.
	StateConsumed
	// StateFailed means the engine reported an error for the work.
	StateFailed
)

var stateNames = map[OperationState]string{
	StateIdle:      "idle",
	StateSubmitted: "submitted",
	StateReady:     "ready",
	StateConsumed:  "consumed",
	StateFailed:    "failed",
}

// String returns the state name.
func (s OperationState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Operation is one unit of asynchronous engine work: a completion token
// plus its provisional output.
type Operation struct {
	s           *Session
	kind        string
	sp          engine.SyncPoint
	out         *surface.FrameSurface
	bs          *bitstream.Bitstream
	before      int
	submittedAt time.Time

	mu          sync.Mutex
	state       OperationState
	err         error
	wait        chan struct{}
	synced      bool
	outstanding bool
}

func newOperation(s *Session, kind string, sp engine.SyncPoint) *Operation {
	return &Operation{
		s:           s,
		kind:        kind,
		sp:          sp,
		submittedAt: s.tp.Now(),
		state:       StateSubmitted,
		outstanding: true,
	}
}

// settle reports whether op still counted as outstanding and clears the
// mark, so that only one caller decrements the session counter.
func (op *Operation) settle() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	was := op.outstanding
	op.outstanding = false
	return was
}

// Kind returns "decode", "encode" or "vpp".
func (op *Operation) Kind() string { return op.kind }

// State returns the current state.
func (op *Operation) State() OperationState {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// Err returns the error that failed the operation.
func (op *Operation) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.err
}

// Output returns the provisional output surface of a decode or vpp
// operation. Its pixels are valid only after Synchronize.
func (op *Operation) Output() *surface.FrameSurface { return op.out }

// Written returns how many bytes an encode operation appended to its
// output bitstream. It is meaningful only after Synchronize.
func (op *Operation) Written() int {
	if op.bs == nil {
		return 0
	}
	n := op.bs.Len() - op.before
	if n < 0 {
		return 0
	}
	return n
}

// Synchronize waits until the engine completes the operation and returns
// its output surface (nil for encode operations).
//
// The wait runs on the session sync pool. Cancelling ctx stops waiting but
// never aborts the engine work; a later call picks up where it left off. When
// every attempt times out the result is ErrSyncTimeout and the operation
// stays submitted.
func (op *Operation) Synchronize(ctx context.Context) (*surface.FrameSurface, error) {
	op.mu.Lock()
	switch op.state {
	case StateReady:
		op.mu.Unlock()
		return op.out, nil
	case StateConsumed:
		op.mu.Unlock()
		return nil, ErrOperationConsumed
	case StateFailed:
		err := op.err
		op.mu.Unlock()
		return nil, err
	}
	if op.wait == nil {
		op.wait = make(chan struct{})
		op.s.wg.Add(1)
		go op.await(op.wait)
	}
	wait := op.wait
	op.mu.Unlock()

	select {
	case <-wait:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	op.mu.Lock()
	defer op.mu.Unlock()
	switch op.state {
	case StateReady:
		return op.out, nil
	case StateConsumed:
		return nil, ErrOperationConsumed
	case StateFailed:
		return nil, op.err
	}
	// timed out: the next call starts a fresh wait
	return nil, op.err
}

// await blocks in the engine on a sync pool slot and publishes the result.
func (op *Operation) await(done chan struct{}) {
	defer op.s.wg.Done()
	defer close(done)

	op.mu.Lock()
	synced := op.synced
	op.mu.Unlock()

	var err error
	if !synced {
		if err = op.s.sem.Acquire(op.s.ctx, 1); err != nil {
			err = ErrSessionClosed
		} else {
			err = op.s.synchronize(op.sp)
			op.s.sem.Release(1)
		}
		if err == nil {
			op.mu.Lock()
			op.synced = true
			op.mu.Unlock()
		}
	}
	// sp is complete; the output pixels may still be pending
	if err == nil && op.out != nil {
		err = op.s.awaitOutput(op.out)
	}
	op.s.completed(op, err)

	op.mu.Lock()
	defer op.mu.Unlock()
	switch {
	case op.state == StateConsumed:
		op.wait = nil
	case err == nil:
		op.state = StateReady
		op.err = nil
	case errors.Is(err, ErrSyncTimeout):
		op.err = err
		op.wait = nil
	default:
		op.state = StateFailed
		op.err = err
	}
}

// consume hands the output over to the caller.
func (op *Operation) consume() *surface.FrameSurface {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.state = StateConsumed
	return op.out
}

// Release gives the output surface back to the engine without using it. It
// is a no-op once the output has been consumed. Releasing a submitted
// operation abandons it.
func (op *Operation) Release() error {
	op.mu.Lock()
	if op.state == StateConsumed {
		op.mu.Unlock()
		return nil
	}
	abandoned := op.state == StateSubmitted
	op.state = StateConsumed
	out := op.out
	op.mu.Unlock()

	if abandoned && op.settle() {
		op.s.mu.Lock()
		op.s.stats.Outstanding--
		op.s.mu.Unlock()
	}

	if out == nil {
		return nil
	}
	return out.Close()
}
