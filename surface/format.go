package surface

import "fmt"

// FourCC identifies a raw pixel layout using the engine's four-character
// codes.
type FourCC uint32

func makeFourCC(a, b, c, d byte) FourCC {
	return FourCC(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// Supported pixel layouts.
var (
	// FourCCNV12 is 4:2:0 with a luma plane followed by one interleaved UV plane.
	FourCCNV12 = makeFourCC('N', 'V', '1', '2')
	// FourCCIYUV is planar 4:2:0 with U before V.
	FourCCIYUV = makeFourCC('I', 'Y', 'U', 'V')
	// FourCCI420 is an alias of FourCCIYUV.
	FourCCI420 = FourCCIYUV
	// FourCCYV12 is planar 4:2:0 with V before U.
	FourCCYV12 = makeFourCC('Y', 'V', '1', '2')
	// FourCCRGB4 is packed 8-bit B, G, R, A in memory order.
	FourCCRGB4 = makeFourCC('R', 'G', 'B', '4')
	// FourCCBGRA is an alias of FourCCRGB4.
	FourCCBGRA = FourCCRGB4
	// FourCCBGR4 is packed 8-bit R, G, B, A in memory order.
	FourCCBGR4 = makeFourCC('B', 'G', 'R', '4')
	// FourCCRGBA is an alias of FourCCBGR4.
	FourCCRGBA = FourCCBGR4
)

// String returns the four characters of f.
func (f FourCC) String() string {
	b := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("fourcc(0x%08x)", uint32(f))
		}
	}
	return string(b)
}

// Supported reports whether the surface layer understands f.
func (f FourCC) Supported() bool {
	switch f {
	case FourCCNV12, FourCCIYUV, FourCCYV12, FourCCRGB4, FourCCBGR4:
		return true
	}
	return false
}

// Packed reports whether f stores all channels in one interleaved plane.
func (f FourCC) Packed() bool {
	return f == FourCCRGB4 || f == FourCCBGR4
}

// ChromaFormat returns the engine chroma format code of f: 1 for 4:2:0 and
// 3 for 4:4:4.
func (f FourCC) ChromaFormat() uint16 {
	if f.Packed() {
		return 3
	}
	return 1
}

// BytesPerPixel returns the luma (or packed) plane bytes per pixel.
func (f FourCC) BytesPerPixel() int {
	if f.Packed() {
		return 4
	}
	return 1
}

// ChromaSize returns the width and height in samples of one 4:2:0 chroma
// plane for a width x height luma plane. Odd sizes round up.
func ChromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// ChromaPitch returns the row pitch of the chroma planes of f for a luma
// pitch: half of it for planar layouts and the luma pitch for NV12, rounded
// up so that a chroma row always fits.
func ChromaPitch(f FourCC, pitch int) int {
	switch f {
	case FourCCIYUV, FourCCYV12:
		return (pitch + 1) / 2
	case FourCCNV12:
		return pitch + pitch&1
	}
	return 0
}

// PlaneBytes returns the size of the luma (or packed) plane and of each
// chroma plane of a frame of f with height rows of pitch bytes.
func PlaneBytes(f FourCC, pitch, height int) (luma, chroma int) {
	luma = height * pitch
	if f == FourCCIYUV || f == FourCCYV12 || f == FourCCNV12 {
		_, ch := ChromaSize(0, height)
		chroma = ch * ChromaPitch(f, pitch)
	}
	return luma, chroma
}

// PitchedFrameSize returns the bytes needed to store every plane of a frame
// of f contiguously with the given pitch and height.
func PitchedFrameSize(f FourCC, pitch, height int) int {
	luma, chroma := PlaneBytes(f, pitch, height)
	if f == FourCCIYUV || f == FourCCYV12 {
		return luma + 2*chroma
	}
	return luma + chroma
}

// FrameSize returns the size in bytes of one tightly packed frame of the
// given format, or 0 for an unsupported format.
func FrameSize(format FourCC, width, height int) int {
	switch format {
	case FourCCNV12, FourCCIYUV, FourCCYV12:
		cw, ch := ChromaSize(width, height)
		return width*height + 2*cw*ch
	case FourCCRGB4, FourCCBGR4:
		return width * height * 4
	}
	return 0
}

// MemoryFlag selects the access mode when mapping a surface.
type MemoryFlag uint32

const (
	MemoryRead      MemoryFlag = 1
	MemoryWrite     MemoryFlag = 2
	MemoryReadWrite MemoryFlag = MemoryRead | MemoryWrite
	// MemoryNoWait makes Map fail with DeviceBusy instead of blocking.
	MemoryNoWait MemoryFlag = 0x10
)

// CanRead reports whether m grants read access.
func (m MemoryFlag) CanRead() bool { return m&MemoryRead != 0 }

// CanWrite reports whether m grants write access.
func (m MemoryFlag) CanWrite() bool { return m&MemoryWrite != 0 }
