package allocator

import (
	"unsafe"

	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/surface"
)

// FrameAllocRequest is a typed view over the engine's allocation request.
// It does not copy; it is valid only for the duration of the callback.
type FrameAllocRequest struct {
	raw *abi.FrameAllocRequest
}

// AllocID returns the identifier the engine uses to pair alloc and free.
func (r FrameAllocRequest) AllocID() uint32 { return r.raw.AllocID }

// Type returns the memory type flags of the request.
func (r FrameAllocRequest) Type() MemType { return MemType(r.raw.Type) }

// NumFrameMin returns the minimum number of frames the engine needs.
func (r FrameAllocRequest) NumFrameMin() int { return int(r.raw.NumFrameMin) }

// NumFrameSuggested returns the number of frames the engine would like.
func (r FrameAllocRequest) NumFrameSuggested() int { return int(r.raw.NumFrameSuggested) }

// Info returns the geometry and format of the requested frames.
func (r FrameAllocRequest) Info() surface.FrameInfo {
	return FrameInfoFromABI(&r.raw.Info)
}

// FrameAllocResponse is a typed view over the engine's allocation response.
type FrameAllocResponse struct {
	raw    *abi.FrameAllocResponse
	bridge *FrameAllocator
}

// AllocID returns the identifier copied from the request.
func (r FrameAllocResponse) AllocID() uint32 { return r.raw.AllocID }

// NumFrameActual returns the number of memory identifiers in the table.
func (r FrameAllocResponse) NumFrameActual() int { return int(r.raw.NumFrameActual) }

// MemIDs returns a copy of the memory identifier table.
func (r FrameAllocResponse) MemIDs() []MemID {
	table := abi.MemIDs(r.raw.MIDs, int(r.raw.NumFrameActual))
	ids := make([]MemID, len(table))
	for i, id := range table {
		ids[i] = MemID(id)
	}
	return ids
}

// SetMemIDs hands a table of memory identifiers to the engine. The bridge
// owns the table until the engine calls free for this response; a table set
// earlier on the same response is reclaimed first.
func (r FrameAllocResponse) SetMemIDs(ids []MemID) {
	if r.raw.MIDs != 0 {
		r.bridge.reclaimTable(r.raw.MIDs)
	}
	r.raw.MIDs = r.bridge.retainTable(ids)
	r.raw.NumFrameActual = uint16(len(ids))
}

// FrameData is a typed view over the engine's frame data descriptor, used
// by lock and unlock handlers to publish and withdraw plane pointers.
type FrameData struct {
	raw *abi.FrameData
}

// MemID returns the memory identifier recorded in the descriptor.
func (d FrameData) MemID() MemID { return MemID(d.raw.MemID) }

// Pitch returns the row stride in bytes.
func (d FrameData) Pitch() int { return int(d.raw.Pitch()) }

// SetPitch sets the row stride in bytes.
func (d FrameData) SetPitch(pitch int) { d.raw.SetPitch(uint32(pitch)) }

// Y returns the Y (or R) plane pointer.
func (d FrameData) Y() uintptr { return d.raw.Y }

// U returns the U (or UV, or G) plane pointer.
func (d FrameData) U() uintptr { return d.raw.U }

// V returns the V (or B) plane pointer.
func (d FrameData) V() uintptr { return d.raw.V }

// A returns the alpha plane pointer.
func (d FrameData) A() uintptr { return d.raw.A }

// SetY sets the Y (or R) plane pointer.
func (d FrameData) SetY(p uintptr) { d.raw.Y = p }

// SetU sets the U (or UV, or G) plane pointer.
func (d FrameData) SetU(p uintptr) { d.raw.U = p }

// SetV sets the V (or B) plane pointer.
func (d FrameData) SetV(p uintptr) { d.raw.V = p }

// SetA sets the alpha plane pointer.
func (d FrameData) SetA(p uintptr) { d.raw.A = p }

// Clear withdraws every plane pointer.
func (d FrameData) Clear() {
	d.raw.Y, d.raw.U, d.raw.V, d.raw.A = 0, 0, 0, 0
}

// SetFrame publishes the planes of one frame stored contiguously in buf:
// the luma (or packed) plane of height rows followed by the chroma planes.
// buf must stay valid and immobile until unlock.
func (d FrameData) SetFrame(format surface.FourCC, buf []byte, pitch, height int) {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	l, c := surface.PlaneBytes(format, pitch, height)
	luma, chroma := uintptr(l), uintptr(c)

	d.Clear()
	d.SetPitch(pitch)

	switch format {
	case surface.FourCCIYUV:
		d.raw.Y = base
		d.raw.U = base + luma
		d.raw.V = base + luma + chroma
	case surface.FourCCYV12:
		d.raw.Y = base
		d.raw.V = base + luma
		d.raw.U = base + luma + chroma
	case surface.FourCCNV12:
		d.raw.Y = base
		d.raw.U = base + luma
		d.raw.V = base + luma + 1
	case surface.FourCCRGB4:
		d.raw.V = base
		d.raw.U = base + 1
		d.raw.Y = base + 2
		d.raw.A = base + 3
	case surface.FourCCBGR4:
		d.raw.Y = base
		d.raw.U = base + 1
		d.raw.V = base + 2
		d.raw.A = base + 3
	}
}

// Surface converts the published plane pointers into plane slices sized for
// info's allocated height. Pointers must refer to memory that outlives the
// returned slices.
func (d FrameData) Surface(info surface.FrameInfo) surface.FrameData {
	pitch := d.Pitch()
	luma, chroma := surface.PlaneBytes(info.FourCC, pitch, int(info.Height))
	out := surface.FrameData{
		Pitch:      pitch,
		TimeStamp:  d.raw.TimeStamp,
		FrameOrder: d.raw.FrameOrder,
		MemID:      d.raw.MemID,
		Locked:     d.raw.Locked,
		Corrupted:  d.raw.Corrupted,
		DataFlag:   d.raw.DataFlag,
	}

	switch info.FourCC {
	case surface.FourCCIYUV, surface.FourCCYV12:
		out.Y = abi.Bytes(d.raw.Y, luma)
		out.U = abi.Bytes(d.raw.U, chroma)
		out.V = abi.Bytes(d.raw.V, chroma)
	case surface.FourCCNV12:
		out.Y = abi.Bytes(d.raw.Y, luma)
		out.U = abi.Bytes(d.raw.U, chroma)
	case surface.FourCCRGB4:
		out.Packed = abi.Bytes(d.raw.V, luma)
	case surface.FourCCBGR4:
		out.Packed = abi.Bytes(d.raw.Y, luma)
	}
	return out
}

// NewFrameData returns a view over a descriptor.
func NewFrameData(raw *abi.FrameData) FrameData { return FrameData{raw: raw} }

// FrameInfoFromABI converts the engine layout into a FrameInfo.
func FrameInfoFromABI(in *abi.FrameInfo) surface.FrameInfo {
	return surface.FrameInfo{
		FourCC:       surface.FourCC(in.FourCC),
		Width:        in.Width,
		Height:       in.Height,
		CropX:        in.CropX,
		CropY:        in.CropY,
		CropW:        in.CropW,
		CropH:        in.CropH,
		FrameRateN:   in.FrameRateExtN,
		FrameRateD:   in.FrameRateExtD,
		PicStruct:    in.PicStruct,
		ChromaFormat: in.ChromaFormat,
	}
}

// FrameInfoToABI fills the engine layout of info.
func FrameInfoToABI(info surface.FrameInfo, out *abi.FrameInfo) {
	out.FourCC = uint32(info.FourCC)
	out.Width = info.Width
	out.Height = info.Height
	out.CropX = info.CropX
	out.CropY = info.CropY
	out.CropW = info.CropW
	out.CropH = info.CropH
	out.FrameRateExtN = info.FrameRateN
	out.FrameRateExtD = info.FrameRateD
	out.PicStruct = info.PicStruct
	out.ChromaFormat = info.ChromaFormat
	out.BitDepthLuma = 8
	out.BitDepthChroma = 8
}
