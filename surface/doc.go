// Package surface exposes raw picture memory owned by the codec engine as
// typed pixel planes.
//
// A FrameSurface wraps an engine Handle. The handle owns the memory; the
// surface adds plane arithmetic, raw frame input and streaming output on
// top of it.
//
// # Plane arithmetic
//
// Plane lengths are derived from the crop height and the pitch (bytes per
// row including padding), never from the allocated height. Chroma of odd
// sizes rounds up:
//
//	Y            CropH     x Pitch
//	U, V         ⌈CropH/2⌉ x ⌈Pitch/2⌉   (IYUV/I420, YV12)
//	UV           ⌈CropH/2⌉ x Pitch       (NV12)
//	B, G, R, A   CropH     x Pitch - k   (packed, k = channel offset)
//
// Accessing a plane the layout does not have, or any plane while the
// surface is unmapped, is a programming error and panics.
//
// # Raw frames
//
// ReadRawFrame consumes exactly one tightly packed frame and lays it out
// into the planes, skipping row padding:
//
//	s, _ := surface.New(handle)
//	if err := s.ReadRawFrame(file, surface.FourCCI420); errors.Is(err, status.MoreData) {
//		// end of input
//	}
//
// Read is the inverse: it streams the visible rows out, plane after plane,
// so io.Copy(w, s) writes one tightly packed frame.
//
// # Lifetime
//
// Close unmaps the surface if needed and releases it to the engine exactly
// once. MemoryHandle is a Go-memory Handle implementation used by engines
// written in Go and by tests.
package surface
