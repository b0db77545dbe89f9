package abi

import "unsafe"

// Version is mfxVersion.
type Version struct {
	Minor uint16
	Major uint16
}

// FrameInfo is mfxFrameInfo (68 bytes).
type FrameInfo struct {
	reserved       [4]uint32
	ChannelID      uint16
	BitDepthLuma   uint16
	BitDepthChroma uint16
	Shift          uint16
	TemporalID     uint16
	PriorityID     uint16
	DependencyID   uint16
	QualityID      uint16
	FourCC         uint32
	Width          uint16
	Height         uint16
	CropX          uint16
	CropY          uint16
	CropW          uint16
	CropH          uint16
	FrameRateExtN  uint32
	FrameRateExtD  uint32
	reserved3      uint16
	AspectRatioW   uint16
	AspectRatioH   uint16
	PicStruct      uint16
	ChromaFormat   uint16
	reserved2      uint16
}

// FrameData is mfxFrameData (96 bytes). Plane pointers alias one another the
// way the C unions do: Y is also R, U is also UV and G, V is also B.
type FrameData struct {
	ExtParam    uintptr
	NumExtParam uint16
	reserved    [9]uint16
	MemType     uint16
	PitchHigh   uint16
	TimeStamp   uint64
	FrameOrder  uint32
	Locked      uint16
	PitchLow    uint16
	Y           uintptr
	U           uintptr
	V           uintptr
	A           uintptr
	MemID       uintptr
	Corrupted   uint16
	DataFlag    uint16
}

// Pitch returns the combined 32-bit pitch.
func (d *FrameData) Pitch() uint32 {
	return uint32(d.PitchHigh)<<16 | uint32(d.PitchLow)
}

// SetPitch splits pitch into its low and high halves.
func (d *FrameData) SetPitch(pitch uint32) {
	d.PitchLow = uint16(pitch)
	d.PitchHigh = uint16(pitch >> 16)
}

// FrameSurface is mfxFrameSurface1 (184 bytes).
type FrameSurface struct {
	FrameInterface uintptr
	StructVersion  uint16
	reserved1      [3]uint16
	Info           FrameInfo
	Data           FrameData
}

// FrameSurfaceInterface is mfxFrameSurfaceInterface, the function table the
// engine attaches to surfaces it allocates.
type FrameSurfaceInterface struct {
	Context         uintptr
	StructVersion   uint16
	reserved1       [3]uint16
	AddRef          uintptr
	Release         uintptr
	GetRefCounter   uintptr
	Map             uintptr
	Unmap           uintptr
	GetNativeHandle uintptr
	GetDeviceHandle uintptr
	Synchronize     uintptr
	OnComplete      uintptr
	QueryInterface  uintptr
	reserved2       [2]uintptr
}

// FrameAllocRequest is mfxFrameAllocRequest (92 bytes).
type FrameAllocRequest struct {
	AllocID           uint32
	reserved3         [3]uint32
	Info              FrameInfo
	Type              uint16
	NumFrameMin       uint16
	NumFrameSuggested uint16
	reserved2         uint16
}

// FrameAllocResponse is mfxFrameAllocResponse (32 bytes).
type FrameAllocResponse struct {
	AllocID        uint32
	reserved       [3]uint32
	MIDs           uintptr
	NumFrameActual uint16
	reserved2      uint16
}

// FrameAllocator is mfxFrameAllocator (64 bytes). The five function fields
// hold C-callable function pointers.
type FrameAllocator struct {
	reserved [4]uint32
	PThis    uintptr
	Alloc    uintptr
	Lock     uintptr
	Unlock   uintptr
	GetHDL   uintptr
	Free     uintptr
}

// Bitstream is mfxBitstream (72 bytes).
type Bitstream struct {
	EncryptedData   uintptr
	ExtParam        uintptr
	NumExtParam     uint16
	CodecID         uint32
	DecodeTimeStamp int64
	TimeStamp       uint64
	Data            uintptr
	DataOffset      uint32
	DataLength      uint32
	MaxLength       uint32
	PicStruct       uint16
	FrameType       uint16
	DataFlag        uint16
	reserved2       uint16
}

// Layout sizes of the mirrored structures.
const (
	SizeofFrameInfo             = 68
	SizeofFrameData             = 96
	SizeofFrameSurface          = 184
	SizeofFrameSurfaceInterface = 112
	SizeofFrameAllocRequest     = 92
	SizeofFrameAllocResponse    = 32
	SizeofFrameAllocator        = 64
	SizeofBitstream             = 72
)

// Bytes views n bytes of engine or mmap memory starting at p. It returns nil
// for a null pointer.
func Bytes(p uintptr, n int) []byte {
	if p == 0 || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
}

// MemIDs views a table of n memory identifiers starting at p.
func MemIDs(p uintptr, n int) []uintptr {
	if p == 0 || n <= 0 {
		return nil
	}
	return unsafe.Slice((*uintptr)(unsafe.Pointer(p)), n)
}
