// Package limits provides centralized frame and buffer size limits for the
// codec pipeline. This ensures consistent validation across the bitstream,
// surface, allocator and engine packages.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxFrameWidth is the widest frame the engine accepts (16K).
	MaxFrameWidth = 16384

	// MaxFrameHeight is the tallest frame the engine accepts (16K).
	MaxFrameHeight = 16384

	// MaxBitstreamBuffer caps a single compressed buffer (256 MiB).
	// Bigger buffers indicate a sizing bug rather than a real stream.
	MaxBitstreamBuffer = 256 * 1024 * 1024

	// DefaultBitstreamBuffer is used when the engine does not suggest a size (2 MiB).
	DefaultBitstreamBuffer = 2 * 1024 * 1024

	// MaxAllocFrames bounds how many frames a single allocation request may ask for.
	MaxAllocFrames = 256

	// PlaneAlignment is the row alignment hardware surfaces use.
	PlaneAlignment = 16

	// InterlacedAlignment is the height alignment for non-progressive content.
	InterlacedAlignment = 32
)

var (
	// ErrFrameEmpty indicates a zero width or height.
	ErrFrameEmpty = errors.New("empty frame dimensions")

	// ErrFrameTooLarge indicates dimensions beyond MaxFrameWidth/MaxFrameHeight.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrBufferEmpty indicates a zero-length buffer.
	ErrBufferEmpty = errors.New("empty buffer")

	// ErrBufferTooLarge indicates a buffer beyond MaxBitstreamBuffer.
	ErrBufferTooLarge = errors.New("buffer too large")

	// ErrTooManyFrames indicates an allocation request beyond MaxAllocFrames.
	ErrTooManyFrames = errors.New("too many frames requested")
)

// ValidateFrameSize validates frame dimensions against the engine limits.
// Returns an error with context including the actual and maximum sizes.
func ValidateFrameSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrFrameEmpty, width, height)
	}
	if width > MaxFrameWidth || height > MaxFrameHeight {
		return fmt.Errorf("%w: %dx%d exceeds limit %dx%d", ErrFrameTooLarge, width, height, MaxFrameWidth, MaxFrameHeight)
	}
	return nil
}

// ValidateBitstreamBuffer validates a compressed buffer capacity.
func ValidateBitstreamBuffer(size int) error {
	if size <= 0 {
		return ErrBufferEmpty
	}
	if size > MaxBitstreamBuffer {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrBufferTooLarge, size, MaxBitstreamBuffer)
	}
	return nil
}

// ValidateFrameCount validates the number of frames in one allocation request.
func ValidateFrameCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrTooManyFrames, n)
	}
	if n > MaxAllocFrames {
		return fmt.Errorf("%w: %d exceeds limit %d", ErrTooManyFrames, n, MaxAllocFrames)
	}
	return nil
}

// Align rounds x up to a multiple of n. n must be a power of two.
func Align(x, n int) int {
	return (x + n - 1) &^ (n - 1)
}

// AlignWidth returns the hardware-aligned surface width for a frame.
func AlignWidth(width int) int {
	return Align(width, PlaneAlignment)
}

// AlignHeight returns the hardware-aligned surface height. Interlaced content
// needs twice the alignment because each field is aligned separately.
func AlignHeight(height int, progressive bool) int {
	if progressive {
		return Align(height, PlaneAlignment)
	}
	return Align(height, InterlacedAlignment)
}
