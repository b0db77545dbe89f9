package onevpl

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/surface"
)

// Decoder turns compressed units buffered in a Bitstream into surfaces.
type Decoder struct {
	component
}

// NewDecoder initializes the engine decoder. Zero AsyncDepth and IOPattern
// take the session defaults.
func (s *Session) NewDecoder(params engine.VideoParams) (*Decoder, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if params.AsyncDepth == 0 {
		params.AsyncDepth = s.opts.AsyncDepth
	}
	if params.IOPattern == 0 {
		params.IOPattern = s.opts.IOPattern
	}
	if err := s.eng.DecodeInit(params); err != nil {
		return nil, s.fail("Session.NewDecoder", fmt.Errorf("decode init: %w", err))
	}

	d := &Decoder{component{s: s, kind: "decode"}}
	s.mu.Lock()
	s.dec = d
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function": "Session.NewDecoder",
		"codec":    params.Codec.String(),
		"width":    params.Frame.CropW,
		"height":   params.Frame.CropH,
	}).Info("Decoder created")
	return d, nil
}

// Submit hands the buffered units of bs to the engine. A nil bs signals end
// of stream. It returns status.MoreData when bs holds no complete unit (or,
// at end of stream, no cached frame is left), status.MoreSurface when every
// output surface is in use and status.VideoParamChanged when the stream
// parameters changed.
func (d *Decoder) Submit(bs *bitstream.Bitstream) (*Operation, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	h, sp, err := d.s.eng.DecodeFrameAsync(bs)
	if err := d.s.submitted("Decoder.Submit", err); err != nil {
		return nil, err
	}
	return d.wrapOutput(h, newOperation(d.s, d.kind, sp))
}

// Decode submits bs and waits for the decoded surface. The caller owns the
// surface and must Close it.
func (d *Decoder) Decode(ctx context.Context, bs *bitstream.Bitstream) (*surface.FrameSurface, error) {
	op, err := d.Submit(bs)
	if err != nil {
		return nil, err
	}
	if _, err := op.Synchronize(ctx); err != nil {
		return nil, err
	}
	return op.consume(), nil
}

// Drain flushes the frames the engine still caches at end of stream. Each
// surface is passed to fn and released when fn returns.
func (d *Decoder) Drain(ctx context.Context, fn func(*surface.FrameSurface) error) error {
	return drainSurfaces(ctx, func() (*Operation, error) { return d.Submit(nil) }, fn)
}

// Reset applies new parameters, dropping cached frames.
func (d *Decoder) Reset(params engine.VideoParams) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := d.s.eng.DecodeReset(params); err != nil {
		return d.s.fail("Decoder.Reset", fmt.Errorf("decode reset: %w", err))
	}
	d.s.log.WithFields(logrus.Fields{
		"function": "Decoder.Reset",
		"width":    params.Frame.CropW,
		"height":   params.Frame.CropH,
	}).Info("Decoder reset")
	return nil
}

// Params returns the working parameters.
func (d *Decoder) Params() (engine.VideoParams, error) {
	if err := d.check(); err != nil {
		return engine.VideoParams{}, err
	}
	params, err := d.s.eng.DecodeGetParams()
	if err != nil {
		return engine.VideoParams{}, d.s.fail("Decoder.Params", err)
	}
	return params, nil
}

// Surface returns a free surface from the decoder pool.
func (d *Decoder) Surface() (*surface.FrameSurface, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	h, err := d.s.eng.GetSurfaceForDecode()
	if err != nil {
		return nil, d.s.fail("Decoder.Surface", err)
	}
	return surface.New(h)
}

// Close closes the engine decoder. Further calls are no-ops.
func (d *Decoder) Close() error {
	err := d.close()
	d.s.mu.Lock()
	if d.s.dec == d {
		d.s.dec = nil
	}
	d.s.mu.Unlock()
	return err
}

func (d *Decoder) close() error {
	if !d.markClosed() {
		return nil
	}
	d.s.log.WithFields(logrus.Fields{
		"function": "Decoder.Close",
	}).Info("Decoder closed")
	return d.s.eng.DecodeClose()
}
