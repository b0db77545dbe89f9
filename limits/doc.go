// Package limits provides centralized frame and buffer size constants and
// validation functions for the codec pipeline.
//
// # Size Limits
//
//   - MaxFrameWidth / MaxFrameHeight (16384): the largest surface the engine
//     can describe.
//
//   - MaxBitstreamBuffer (256 MiB): the largest compressed buffer accepted by
//     bitstream.New. Encoders suggest buffer sizes in kilobytes; anything past
//     this limit is a sizing bug.
//
//   - DefaultBitstreamBuffer (2 MiB): used when no suggestion is available.
//
//   - MaxAllocFrames (256): the largest frame count an allocation request may
//     carry.
//
// # Validation Functions
//
//	if err := limits.ValidateFrameSize(width, height); err != nil {
//	    // ErrFrameEmpty or ErrFrameTooLarge
//	}
//
// # Alignment
//
// Hardware surfaces are allocated with 16-pixel aligned widths and heights
// (32 for interlaced content). Crop rectangles then describe the visible
// region inside the aligned surface:
//
//	w := limits.AlignWidth(320)        // 320
//	h := limits.AlignHeight(180, true) // 192
package limits
