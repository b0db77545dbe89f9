package abi

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestSizes(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layouts are mirrored for 64-bit platforms only")
	}

	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"FrameInfo", unsafe.Sizeof(FrameInfo{}), SizeofFrameInfo},
		{"FrameData", unsafe.Sizeof(FrameData{}), SizeofFrameData},
		{"FrameSurface", unsafe.Sizeof(FrameSurface{}), SizeofFrameSurface},
		{"FrameSurfaceInterface", unsafe.Sizeof(FrameSurfaceInterface{}), SizeofFrameSurfaceInterface},
		{"FrameAllocRequest", unsafe.Sizeof(FrameAllocRequest{}), SizeofFrameAllocRequest},
		{"FrameAllocResponse", unsafe.Sizeof(FrameAllocResponse{}), SizeofFrameAllocResponse},
		{"FrameAllocator", unsafe.Sizeof(FrameAllocator{}), SizeofFrameAllocator},
		{"Bitstream", unsafe.Sizeof(Bitstream{}), SizeofBitstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestOffsets(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layouts are mirrored for 64-bit platforms only")
	}

	var info FrameInfo
	assert.Equal(t, uintptr(32), unsafe.Offsetof(info.FourCC))
	assert.Equal(t, uintptr(36), unsafe.Offsetof(info.Width))
	assert.Equal(t, uintptr(48), unsafe.Offsetof(info.FrameRateExtN))
	assert.Equal(t, uintptr(62), unsafe.Offsetof(info.PicStruct))
	assert.Equal(t, uintptr(64), unsafe.Offsetof(info.ChromaFormat))

	var data FrameData
	assert.Equal(t, uintptr(32), unsafe.Offsetof(data.TimeStamp))
	assert.Equal(t, uintptr(46), unsafe.Offsetof(data.PitchLow))
	assert.Equal(t, uintptr(48), unsafe.Offsetof(data.Y))
	assert.Equal(t, uintptr(80), unsafe.Offsetof(data.MemID))

	var surf FrameSurface
	assert.Equal(t, uintptr(16), unsafe.Offsetof(surf.Info))
	assert.Equal(t, uintptr(88), unsafe.Offsetof(surf.Data))

	var iface FrameSurfaceInterface
	assert.Equal(t, uintptr(40), unsafe.Offsetof(iface.Map))
	assert.Equal(t, uintptr(72), unsafe.Offsetof(iface.Synchronize))

	var req FrameAllocRequest
	assert.Equal(t, uintptr(16), unsafe.Offsetof(req.Info))
	assert.Equal(t, uintptr(84), unsafe.Offsetof(req.Type))
	assert.Equal(t, uintptr(88), unsafe.Offsetof(req.NumFrameSuggested))

	var resp FrameAllocResponse
	assert.Equal(t, uintptr(16), unsafe.Offsetof(resp.MIDs))
	assert.Equal(t, uintptr(24), unsafe.Offsetof(resp.NumFrameActual))

	var alloc FrameAllocator
	assert.Equal(t, uintptr(16), unsafe.Offsetof(alloc.PThis))
	assert.Equal(t, uintptr(56), unsafe.Offsetof(alloc.Free))

	var bs Bitstream
	assert.Equal(t, uintptr(20), unsafe.Offsetof(bs.CodecID))
	assert.Equal(t, uintptr(40), unsafe.Offsetof(bs.Data))
	assert.Equal(t, uintptr(52), unsafe.Offsetof(bs.DataLength))
}

func TestPitchSplit(t *testing.T) {
	var d FrameData
	d.SetPitch(0x12345)
	assert.Equal(t, uint16(0x2345), d.PitchLow)
	assert.Equal(t, uint16(0x1), d.PitchHigh)
	assert.Equal(t, uint32(0x12345), d.Pitch())
}

func TestNilViews(t *testing.T) {
	assert.Nil(t, Bytes(0, 10))
	assert.Nil(t, MemIDs(0, 4))

	buf := []byte{1, 2, 3}
	view := Bytes(uintptr(unsafe.Pointer(&buf[0])), 3)
	assert.Equal(t, buf, view)
}
