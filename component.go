package onevpl

import (
	"context"
	"errors"
	"sync"

	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

// component holds the state shared by Decoder, Encoder and VideoProcessor.
type component struct {
	s      *Session
	kind   string
	mu     sync.Mutex
	closed bool
}

// check rejects calls on a closed component or a failed session.
func (c *component) check() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrComponentClosed
	}
	return c.s.guard()
}

// markClosed reports whether this call closed the component.
func (c *component) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	return true
}

// wrapOutput turns an engine output handle into an operation.
func (c *component) wrapOutput(h surface.Handle, op *Operation) (*Operation, error) {
	out, err := surface.New(h)
	if err != nil {
		return nil, c.s.fail(c.kind, err)
	}
	op.out = out
	return op, nil
}

// drainSurfaces submits end of stream until the engine reports MoreData,
// handing every output to fn and releasing it afterwards.
func drainSurfaces(ctx context.Context, submit func() (*Operation, error), fn func(*surface.FrameSurface) error) error {
	for {
		op, err := submit()
		if errors.Is(err, status.MoreData) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err := op.Synchronize(ctx)
		if err != nil {
			return err
		}
		op.consume()
		ferr := fn(out)
		cerr := out.Close()
		if ferr != nil {
			return ferr
		}
		if cerr != nil {
			return cerr
		}
	}
}
