package surface

import "github.com/opd-ai/onevpl/limits"

// TimeStampUnknown marks a frame without a presentation time.
const TimeStampUnknown = ^uint64(0)

// FrameInfo describes the geometry and format of a surface.
type FrameInfo struct {
	FourCC       FourCC
	Width        uint16
	Height       uint16
	CropX        uint16
	CropY        uint16
	CropW        uint16
	CropH        uint16
	FrameRateN   uint32
	FrameRateD   uint32
	PicStruct    uint16
	ChromaFormat uint16
}

// NewFrameInfo returns progressive frame info whose crop rectangle covers
// width x height and whose allocated size is aligned for the engine.
func NewFrameInfo(format FourCC, width, height int) FrameInfo {
	return FrameInfo{
		FourCC:       format,
		Width:        uint16(limits.AlignWidth(width)),
		Height:       uint16(limits.AlignHeight(height, true)),
		CropW:        uint16(width),
		CropH:        uint16(height),
		FrameRateN:   30,
		FrameRateD:   1,
		PicStruct:    1,
		ChromaFormat: format.ChromaFormat(),
	}
}

// FrameData holds the mapped memory of a surface. Plane slices are only
// valid between Map and Unmap of the owning handle.
type FrameData struct {
	// Y is the luma plane of YUV layouts.
	Y []byte
	// U is the U plane of planar layouts, or the interleaved UV plane of NV12.
	U []byte
	// V is the V plane of planar layouts.
	V []byte
	// Packed is the single interleaved plane of 4-channel layouts.
	Packed []byte

	Pitch      int
	TimeStamp  uint64
	FrameOrder uint32
	MemID      uintptr
	Locked     uint16
	Corrupted  uint16
	DataFlag   uint16
}

// Bounds is the geometry used for plane arithmetic.
type Bounds struct {
	Pitch  int
	Width  int
	Height int
	CropX  int
	CropY  int
	CropW  int
	CropH  int
}
