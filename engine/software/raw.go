package software

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/onevpl/limits"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

// unitHeaderSize is the size of the raw unit header.
const unitHeaderSize = 8

// unitHeader describes one raw unit.
type unitHeader struct {
	Width  int
	Height int
	FourCC surface.FourCC
}

// frameSize returns the payload size that follows the header.
func (h unitHeader) frameSize() int {
	return surface.FrameSize(h.FourCC, h.Width, h.Height)
}

// parseUnitHeader reads a header from the front of p. It returns MoreData
// when p is too short and UndefinedBehavior when the header is corrupt.
func parseUnitHeader(p []byte) (unitHeader, error) {
	if len(p) < unitHeaderSize {
		return unitHeader{}, status.MoreData
	}
	h := unitHeader{
		Width:  int(binary.LittleEndian.Uint16(p[0:2])),
		Height: int(binary.LittleEndian.Uint16(p[2:4])),
		FourCC: surface.FourCC(binary.LittleEndian.Uint32(p[4:8])),
	}
	if !h.FourCC.Supported() {
		return h, fmt.Errorf("raw unit fourcc %s: %w", h.FourCC, status.UndefinedBehavior)
	}
	if err := limits.ValidateFrameSize(h.Width, h.Height); err != nil {
		return h, fmt.Errorf("raw unit: %w: %w", status.UndefinedBehavior, err)
	}
	return h, nil
}

// appendUnit appends one raw unit holding frame to dst.
func appendUnit(dst []byte, h unitHeader, frame []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(h.Width))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(h.Height))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.FourCC))
	return append(dst, frame...)
}

// EncodeUnit returns one raw unit carrying a tightly packed frame of the
// given format and visible size.
func EncodeUnit(format surface.FourCC, width, height int, frame []byte) ([]byte, error) {
	h := unitHeader{Width: width, Height: height, FourCC: format}
	if !format.Supported() {
		return nil, fmt.Errorf("encode raw unit %s: %w", format, status.Unsupported)
	}
	if len(frame) != h.frameSize() {
		return nil, fmt.Errorf("encode raw unit: frame holds %d bytes, need %d: %w",
			len(frame), h.frameSize(), status.NotEnoughBuffer)
	}
	return appendUnit(make([]byte, 0, unitHeaderSize+len(frame)), h, frame), nil
}
