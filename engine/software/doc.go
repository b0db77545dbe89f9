// Package software is a deterministic codec engine written in Go.
//
// It implements engine.Engine for a single codec, bitstream.CodecRaw, whose
// units are uncompressed frames behind an eight byte little-endian header:
//
//	[width u16][height u16][fourcc u32][tightly packed frame]
//
// The engine behaves like a hardware engine where it matters to a client:
// work runs on the engine's own goroutine in submission order, the decoder
// and encoder hold back Options.Delay frames so that end-of-stream draining
// returns cached frames before MoreData, output surfaces come from a bounded
// pool that reports MoreSurface when exhausted, and video-memory IO patterns
// route frame allocation through an installed allocator.FrameAllocator.
//
// The video processor converts between the IYUV, YV12 and NV12 layouts and
// passes packed 4-channel frames through unchanged. It neither scales nor
// converts colour spaces.
package software
