package engine

import (
	"time"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/surface"
)

// SyncPoint is the completion token of one asynchronous operation.
type SyncPoint uintptr

// Version is the API version an engine implements.
type Version struct {
	Major uint16
	Minor uint16
}

// Core holds the session-wide operations.
type Core interface {
	QueryVersion() (Version, error)
	// SyncOperation waits up to wait for sp to complete. It returns
	// status.InExecution (or another timeout-class status) when the
	// operation is still running.
	SyncOperation(sp SyncPoint, wait time.Duration) error
	// SetFrameAllocator routes video-memory frame allocation through a.
	SetFrameAllocator(a *allocator.FrameAllocator) error
	Close() error
}

// DecodeEngine decodes compressed bitstreams into surfaces.
type DecodeEngine interface {
	// DecodeHeader parses stream parameters from bs without consuming
	// picture data and fills params.
	DecodeHeader(bs *bitstream.Bitstream, params *VideoParams) error
	DecodeInit(params VideoParams) error
	DecodeReset(params VideoParams) error
	DecodeClose() error
	DecodeGetParams() (VideoParams, error)
	// DecodeFrameAsync consumes data from bs and, when a picture is
	// available, returns its surface and completion token. A nil bs drains
	// cached pictures; MoreData ends the drain.
	DecodeFrameAsync(bs *bitstream.Bitstream) (surface.Handle, SyncPoint, error)
	GetSurfaceForDecode() (surface.Handle, error)
}

// EncodeEngine encodes surfaces into compressed bitstreams.
type EncodeEngine interface {
	EncodeInit(params VideoParams) error
	EncodeReset(params VideoParams) error
	EncodeClose() error
	EncodeGetParams() (VideoParams, error)
	// EncodeFrameAsync queues in for encoding and arranges for the output
	// to be appended to out once the returned token completes. A nil in
	// drains cached frames.
	EncodeFrameAsync(ctrl *EncodeCtrl, in surface.Handle, out *bitstream.Bitstream) (SyncPoint, error)
	GetEncodeStat() (EncodeStat, error)
	GetSurfaceForEncode() (surface.Handle, error)
}

// VPPEngine converts and processes surfaces.
type VPPEngine interface {
	VPPInit(params VPPParams) error
	VPPReset(params VPPParams) error
	VPPClose() error
	VPPGetParams() (VPPParams, error)
	// VPPProcessFrameAsync processes in into a new output surface. A nil in
	// drains cached frames.
	VPPProcessFrameAsync(in surface.Handle) (surface.Handle, SyncPoint, error)
	GetSurfaceForVPPIn() (surface.Handle, error)
}

// Engine is a complete codec engine.
type Engine interface {
	Core
	DecodeEngine
	EncodeEngine
	VPPEngine
}
