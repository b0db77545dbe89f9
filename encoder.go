package onevpl

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

// Encoder turns surfaces into compressed units appended to a Bitstream.
type Encoder struct {
	component
	params engine.VideoParams
}

// NewEncoder initializes the engine encoder. Zero AsyncDepth and IOPattern
// take the session defaults.
func (s *Session) NewEncoder(params engine.VideoParams) (*Encoder, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if params.AsyncDepth == 0 {
		params.AsyncDepth = s.opts.AsyncDepth
	}
	if params.IOPattern == 0 {
		params.IOPattern = s.opts.IOPattern
	}
	if err := s.eng.EncodeInit(params); err != nil {
		return nil, s.fail("Session.NewEncoder", fmt.Errorf("encode init: %w", err))
	}

	e := &Encoder{component: component{s: s, kind: "encode"}, params: params}
	s.mu.Lock()
	s.enc = e
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function": "Session.NewEncoder",
		"codec":    params.Codec.String(),
		"width":    params.Frame.CropW,
		"height":   params.Frame.CropH,
	}).Info("Encoder created")
	return e, nil
}

// BufferSize returns the output buffer size to allocate for one unit.
func (e *Encoder) BufferSize() int {
	if n := e.params.SuggestedBufferSize(); n > 0 {
		return n
	}
	return e.s.opts.BufferSize
}

// Submit hands in to the engine; the unit is appended to out once the
// operation completes. A nil in signals end of stream. status.MoreData means
// the frame was cached and no unit is produced yet (or, at end of stream,
// nothing is left). status.NotEnoughBuffer means out has too little free
// space: drain it and resubmit.
//
// A mapped in is unmapped first. The engine keeps its own reference to in,
// so the caller may Close it right after Submit.
func (e *Encoder) Submit(ctrl *engine.EncodeCtrl, in *surface.FrameSurface, out *bitstream.Bitstream) (*Operation, error) {
	if err := e.check(); err != nil {
		return nil, err
	}

	var h surface.Handle
	if in != nil {
		if err := in.Unmap(); err != nil {
			return nil, err
		}
		h = in.Handle()
	}

	before := 0
	if out != nil {
		before = out.Len()
	}
	sp, err := e.s.eng.EncodeFrameAsync(ctrl, h, out)
	if err := e.s.submitted("Encoder.Submit", err); err != nil {
		if errors.Is(err, status.NotEnoughBuffer) && out != nil {
			e.s.log.WithFields(logrus.Fields{
				"function": "Encoder.Submit",
				"free":     out.Free(),
			}).Warn("Output bitstream too small")
		}
		return nil, err
	}

	op := newOperation(e.s, e.kind, sp)
	op.bs, op.before = out, before
	return op, nil
}

// Encode submits in and waits for the unit, returning the number of bytes
// appended to out.
func (e *Encoder) Encode(ctx context.Context, ctrl *engine.EncodeCtrl, in *surface.FrameSurface, out *bitstream.Bitstream) (int, error) {
	op, err := e.Submit(ctrl, in, out)
	if err != nil {
		return 0, err
	}
	if _, err := op.Synchronize(ctx); err != nil {
		return 0, err
	}
	op.consume()
	return op.Written(), nil
}

// Drain flushes the frames the encoder still caches at end of stream. fn is
// called with out after every unit so the caller can take the bytes.
func (e *Encoder) Drain(ctx context.Context, out *bitstream.Bitstream, fn func(*bitstream.Bitstream) error) error {
	for {
		op, err := e.Submit(nil, nil, out)
		if errors.Is(err, status.MoreData) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := op.Synchronize(ctx); err != nil {
			return err
		}
		op.consume()
		if err := fn(out); err != nil {
			return err
		}
	}
}

// Reset applies new parameters, dropping cached frames.
func (e *Encoder) Reset(params engine.VideoParams) error {
	if err := e.check(); err != nil {
		return err
	}
	if err := e.s.eng.EncodeReset(params); err != nil {
		return e.s.fail("Encoder.Reset", fmt.Errorf("encode reset: %w", err))
	}
	e.mu.Lock()
	e.params = params
	e.mu.Unlock()
	return nil
}

// Params returns the working parameters.
func (e *Encoder) Params() (engine.VideoParams, error) {
	if err := e.check(); err != nil {
		return engine.VideoParams{}, err
	}
	params, err := e.s.eng.EncodeGetParams()
	if err != nil {
		return engine.VideoParams{}, e.s.fail("Encoder.Params", err)
	}
	return params, nil
}

// Stats returns the encoder counters.
func (e *Encoder) Stats() (engine.EncodeStat, error) {
	if err := e.check(); err != nil {
		return engine.EncodeStat{}, err
	}
	stat, err := e.s.eng.GetEncodeStat()
	if err != nil {
		return engine.EncodeStat{}, e.s.fail("Encoder.Stats", err)
	}
	return stat, nil
}

// Surface returns a free input surface from the encoder pool.
func (e *Encoder) Surface() (*surface.FrameSurface, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	h, err := e.s.eng.GetSurfaceForEncode()
	if err != nil {
		return nil, e.s.fail("Encoder.Surface", err)
	}
	return surface.New(h)
}

// Close closes the engine encoder. Further calls are no-ops.
func (e *Encoder) Close() error {
	err := e.close()
	e.s.mu.Lock()
	if e.s.enc == e {
		e.s.enc = nil
	}
	e.s.mu.Unlock()
	return err
}

func (e *Encoder) close() error {
	if !e.markClosed() {
		return nil
	}
	e.s.log.WithFields(logrus.Fields{
		"function": "Encoder.Close",
	}).Info("Encoder closed")
	return e.s.eng.EncodeClose()
}
