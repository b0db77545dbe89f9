package software

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/status"
)

// task is one unit of work on the engine goroutine.
type task struct {
	run  func() error
	done chan struct{}
	err  error
}

// Engine is a pure-Go codec engine for raw units. It is safe for concurrent
// use.
type Engine struct {
	opts Options

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*task
	ops     map[engine.SyncPoint]*task
	nextSP  engine.SyncPoint
	bridge  *allocator.FrameAllocator
	dec     *decoder
	enc     *encoder
	vpp     *processor
	closed  bool
	stopped chan struct{}
}

var _ engine.Engine = (*Engine)(nil)

// New starts an engine. A nil opts uses NewOptions.
func New(opts *Options) *Engine {
	if opts == nil {
		opts = NewOptions()
	}
	e := &Engine{
		opts:    *opts,
		ops:     make(map[engine.SyncPoint]*task),
		stopped: make(chan struct{}),
	}
	if e.opts.PoolSize <= 0 {
		e.opts.PoolSize = NewOptions().PoolSize
	}
	if e.opts.Delay < 0 {
		e.opts.Delay = 0
	}
	e.cond = sync.NewCond(&e.mu)

	go e.work()

	logrus.WithFields(logrus.Fields{
		"function":  "software.New",
		"delay":     e.opts.Delay,
		"pool_size": e.opts.PoolSize,
		"latency":   e.opts.Latency,
	}).Info("Started software engine")

	return e
}

// work runs queued tasks in submission order until Close.
func (e *Engine) work() {
	defer close(e.stopped)
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		t := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		if e.opts.Latency > 0 {
			time.Sleep(e.opts.Latency)
		}
		t.err = t.run()
		close(t.done)
	}
}

// enqueueLocked schedules run on the engine goroutine. e.mu must be held.
func (e *Engine) enqueueLocked(run func() error) *task {
	t := &task{run: run, done: make(chan struct{})}
	e.queue = append(e.queue, t)
	e.cond.Signal()
	return t
}

// publishLocked assigns a sync point to t. e.mu must be held.
func (e *Engine) publishLocked(t *task) engine.SyncPoint {
	e.nextSP++
	sp := e.nextSP
	e.ops[sp] = t
	return sp
}

// fault consults the fault hook.
func (e *Engine) fault(call string) error {
	if e.opts.FaultHook == nil {
		return nil
	}
	return e.opts.FaultHook(call)
}

// QueryVersion implements engine.Core.
func (e *Engine) QueryVersion() (engine.Version, error) {
	return e.opts.Version, nil
}

// SyncOperation implements engine.Core. A completed sync point is forgotten
// after its result has been reported once.
func (e *Engine) SyncOperation(sp engine.SyncPoint, wait time.Duration) error {
	if sp == 0 {
		return status.NullPtr
	}
	e.mu.Lock()
	t, ok := e.ops[sp]
	e.mu.Unlock()
	if !ok {
		return status.NotFound
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-t.done:
	case <-timer.C:
		return status.InExecution
	}

	e.mu.Lock()
	delete(e.ops, sp)
	e.mu.Unlock()
	return t.err
}

// SetFrameAllocator implements engine.Core. It must be called before any
// component is initialized.
func (e *Engine) SetFrameAllocator(a *allocator.FrameAllocator) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dec != nil || e.enc != nil || e.vpp != nil {
		return status.UndefinedBehavior
	}
	e.bridge = a
	return nil
}

// Close implements engine.Core. It waits for queued work to finish and
// frees every component.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.cond.Broadcast()
	e.mu.Unlock()

	<-e.stopped

	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	if e.dec != nil {
		errs = append(errs, e.dec.close())
		e.dec = nil
	}
	if e.enc != nil {
		errs = append(errs, e.enc.close())
		e.enc = nil
	}
	if e.vpp != nil {
		errs = append(errs, e.vpp.close())
		e.vpp = nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "Engine.Close",
	}).Info("Stopped software engine")

	return errors.Join(errs...)
}
