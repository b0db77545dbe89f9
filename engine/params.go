package engine

import (
	"fmt"

	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/limits"
	"github.com/opd-ai/onevpl/surface"
)

// IOPattern selects where input and output frames live.
type IOPattern uint16

const (
	IOPatternInVideoMemory   IOPattern = 0x01
	IOPatternInSystemMemory  IOPattern = 0x02
	IOPatternOutVideoMemory  IOPattern = 0x10
	IOPatternOutSystemMemory IOPattern = 0x20

	IOPatternVideoMemory  = IOPatternInVideoMemory | IOPatternOutVideoMemory
	IOPatternSystemMemory = IOPatternInSystemMemory | IOPatternOutSystemMemory
)

// VideoMemory reports whether any side of p uses video memory.
func (p IOPattern) VideoMemory() bool {
	return p&(IOPatternInVideoMemory|IOPatternOutVideoMemory) != 0
}

// VideoParams carries the parameters the decode and encode pipelines need.
type VideoParams struct {
	Codec      bitstream.Codec
	AsyncDepth int
	IOPattern  IOPattern
	Frame      surface.FrameInfo

	// Encoder rate control.
	TargetKbps     int
	BufferSizeInKB int
	GopPicSize     int
}

// SuggestedBufferSize returns the compressed buffer size an application
// should allocate for one encoded unit.
func (p VideoParams) SuggestedBufferSize() int {
	if p.BufferSizeInKB > 0 {
		return p.BufferSizeInKB * 1024
	}
	f := p.Frame
	raw := surface.FrameSize(f.FourCC, int(f.Width), int(f.Height))
	if raw == 0 {
		return limits.DefaultBitstreamBuffer
	}
	// raw units carry their frame plus an eight byte header
	return raw + 8
}

// Validate checks the fields every pipeline depends on.
func (p VideoParams) Validate() error {
	if err := limits.ValidateFrameSize(int(p.Frame.Width), int(p.Frame.Height)); err != nil {
		return fmt.Errorf("video params: %w", err)
	}
	if p.Frame.CropW > p.Frame.Width || p.Frame.CropH > p.Frame.Height {
		return fmt.Errorf("video params: crop %dx%d exceeds frame %dx%d",
			p.Frame.CropW, p.Frame.CropH, p.Frame.Width, p.Frame.Height)
	}
	if p.AsyncDepth < 0 {
		return fmt.Errorf("video params: negative async depth %d", p.AsyncDepth)
	}
	return nil
}

// VPPParams carries the input and output formats of a video processor.
type VPPParams struct {
	In         surface.FrameInfo
	Out        surface.FrameInfo
	IOPattern  IOPattern
	AsyncDepth int
}

// VPPParamsFrom derives processor parameters from decoder parameters with
// the output converted to format.
func VPPParamsFrom(p VideoParams, format surface.FourCC) VPPParams {
	out := p.Frame
	out.FourCC = format
	out.ChromaFormat = format.ChromaFormat()
	return VPPParams{
		In:         p.Frame,
		Out:        out,
		IOPattern:  p.IOPattern,
		AsyncDepth: p.AsyncDepth,
	}
}

// EncodeCtrl holds per-frame encoder controls.
type EncodeCtrl struct {
	FrameType bitstream.FrameType
	QP        int
}

// EncodeStat reports encoder progress.
type EncodeStat struct {
	NumFrame       uint64
	NumBit         uint64
	NumCachedFrame uint64
}
