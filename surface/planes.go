package surface

import "fmt"

// plane returns data[off:end] after checking that the surface is mapped and
// that the plane exists for the layout.
func (s *FrameSurface) plane(name string, data []byte, present bool, off, end int) []byte {
	if !s.mapped {
		panic(fmt.Sprintf("surface: %s plane accessed while unmapped", name))
	}
	if !present {
		panic(fmt.Sprintf("surface: %s has no %s plane", s.FourCC(), name))
	}
	if data == nil {
		panic(fmt.Sprintf("surface: %s plane is not backed by memory", name))
	}
	if end > len(data) {
		panic(fmt.Sprintf("surface: %s plane holds %d bytes, need %d", name, len(data), end))
	}
	return data[off:end:end]
}

func (s *FrameSurface) lumaLen() int {
	return s.cropH() * s.h.Data().Pitch
}

func (s *FrameSurface) chromaLen() int {
	_, chroma := PlaneBytes(s.FourCC(), s.h.Data().Pitch, s.cropH())
	return chroma
}

func (s *FrameSurface) cropH() int {
	return int(s.h.Info().CropH)
}

func (s *FrameSurface) planar() bool {
	f := s.FourCC()
	return f == FourCCIYUV || f == FourCCYV12
}

// Y returns the luma plane: CropH rows of Pitch bytes.
func (s *FrameSurface) Y() []byte {
	f := s.FourCC()
	present := f == FourCCNV12 || s.planar()
	return s.plane("Y", s.h.Data().Y, present, 0, s.lumaLen())
}

// U returns the U plane of a planar 4:2:0 layout: (CropH+1)/2 rows of
// (Pitch+1)/2 bytes.
func (s *FrameSurface) U() []byte {
	return s.plane("U", s.h.Data().U, s.planar(), 0, s.chromaLen())
}

// V returns the V plane of a planar 4:2:0 layout, sized like U.
func (s *FrameSurface) V() []byte {
	return s.plane("V", s.h.Data().V, s.planar(), 0, s.chromaLen())
}

// UV returns the interleaved chroma plane of NV12: (CropH+1)/2 rows of
// Pitch bytes, with an odd pitch rounded up to even.
func (s *FrameSurface) UV() []byte {
	return s.plane("UV", s.h.Data().U, s.FourCC() == FourCCNV12, 0, s.chromaLen())
}

// packedOffset returns the byte offset of channel c (one of 'B', 'G', 'R',
// 'A') inside a packed pixel.
func packedOffset(f FourCC, c byte) int {
	switch c {
	case 'G':
		return 1
	case 'A':
		return 3
	case 'B':
		if f == FourCCBGR4 {
			return 2
		}
		return 0
	default: // 'R'
		if f == FourCCBGR4 {
			return 0
		}
		return 2
	}
}

func (s *FrameSurface) packedChannel(c byte) []byte {
	f := s.FourCC()
	off := packedOffset(f, c)
	return s.plane(string(c), s.h.Data().Packed, f.Packed(), off, s.lumaLen())
}

// B returns the packed plane starting at the blue channel. Its length is
// CropH*Pitch minus the channel offset; pixels repeat every 4 bytes.
func (s *FrameSurface) B() []byte { return s.packedChannel('B') }

// G returns the packed plane starting at the green channel.
func (s *FrameSurface) G() []byte { return s.packedChannel('G') }

// R returns the packed plane starting at the red channel.
func (s *FrameSurface) R() []byte { return s.packedChannel('R') }

// A returns the packed plane starting at the alpha channel.
func (s *FrameSurface) A() []byte { return s.packedChannel('A') }
