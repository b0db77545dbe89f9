package onevpl

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/surface"
)

// VideoProcessor converts surfaces between pixel layouts.
type VideoProcessor struct {
	component
}

// NewVideoProcessor initializes the engine video processor. Zero AsyncDepth
// and IOPattern take the session defaults.
func (s *Session) NewVideoProcessor(params engine.VPPParams) (*VideoProcessor, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if params.AsyncDepth == 0 {
		params.AsyncDepth = s.opts.AsyncDepth
	}
	if params.IOPattern == 0 {
		params.IOPattern = s.opts.IOPattern
	}
	if err := s.eng.VPPInit(params); err != nil {
		return nil, s.fail("Session.NewVideoProcessor", fmt.Errorf("vpp init: %w", err))
	}

	p := &VideoProcessor{component{s: s, kind: "vpp"}}
	s.mu.Lock()
	s.vpp = p
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function": "Session.NewVideoProcessor",
		"in":       params.In.FourCC.String(),
		"out":      params.Out.FourCC.String(),
	}).Info("Video processor created")
	return p, nil
}

// Submit hands in to the engine and returns the provisional output. A nil
// in signals end of stream.
func (p *VideoProcessor) Submit(in *surface.FrameSurface) (*Operation, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	var h surface.Handle
	if in != nil {
		if err := in.Unmap(); err != nil {
			return nil, err
		}
		h = in.Handle()
	}
	out, sp, err := p.s.eng.VPPProcessFrameAsync(h)
	if err := p.s.submitted("VideoProcessor.Submit", err); err != nil {
		return nil, err
	}
	return p.wrapOutput(out, newOperation(p.s, p.kind, sp))
}

// Process submits in and waits for the converted surface. The caller owns
// the surface and must Close it.
func (p *VideoProcessor) Process(ctx context.Context, in *surface.FrameSurface) (*surface.FrameSurface, error) {
	op, err := p.Submit(in)
	if err != nil {
		return nil, err
	}
	if _, err := op.Synchronize(ctx); err != nil {
		return nil, err
	}
	return op.consume(), nil
}

// Drain flushes frames the processor still holds at end of stream.
func (p *VideoProcessor) Drain(ctx context.Context, fn func(*surface.FrameSurface) error) error {
	return drainSurfaces(ctx, func() (*Operation, error) { return p.Submit(nil) }, fn)
}

// Reset applies new parameters.
func (p *VideoProcessor) Reset(params engine.VPPParams) error {
	if err := p.check(); err != nil {
		return err
	}
	if err := p.s.eng.VPPReset(params); err != nil {
		return p.s.fail("VideoProcessor.Reset", fmt.Errorf("vpp reset: %w", err))
	}
	return nil
}

// Params returns the working parameters.
func (p *VideoProcessor) Params() (engine.VPPParams, error) {
	if err := p.check(); err != nil {
		return engine.VPPParams{}, err
	}
	params, err := p.s.eng.VPPGetParams()
	if err != nil {
		return engine.VPPParams{}, p.s.fail("VideoProcessor.Params", err)
	}
	return params, nil
}

// Surface returns a free input surface from the processor pool.
func (p *VideoProcessor) Surface() (*surface.FrameSurface, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	h, err := p.s.eng.GetSurfaceForVPPIn()
	if err != nil {
		return nil, p.s.fail("VideoProcessor.Surface", err)
	}
	return surface.New(h)
}

// Close closes the engine video processor. Further calls are no-ops.
func (p *VideoProcessor) Close() error {
	err := p.close()
	p.s.mu.Lock()
	if p.s.vpp == p {
		p.s.vpp = nil
	}
	p.s.mu.Unlock()
	return err
}

func (p *VideoProcessor) close() error {
	if !p.markClosed() {
		return nil
	}
	p.s.log.WithFields(logrus.Fields{
		"function": "VideoProcessor.Close",
	}).Info("Video processor closed")
	return p.s.eng.VPPClose()
}
