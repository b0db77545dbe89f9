package surface

import (
	"fmt"
	"io"

	"github.com/opd-ai/onevpl/status"
)

// Read implements io.Reader over the visible pixels of the surface. Rows are
// emitted whole, without pitch padding, plane after plane in the same order
// ReadRawFrame consumes them, so concatenating every Read yields one tightly
// packed frame.
//
// The surface is mapped for reading on first use. Read returns
// io.ErrShortBuffer when p cannot hold the next row and io.EOF once every
// plane has been drained. Reading a surface mapped write-only panics.
func (s *FrameSurface) Read(p []byte) (int, error) {
	if !s.mapped {
		if err := s.Map(MemoryRead); err != nil {
			return 0, err
		}
	} else if !s.access.CanRead() {
		panic("surface: Read on a surface mapped write-only")
	}

	format := s.FourCC()
	if !format.Supported() {
		return 0, fmt.Errorf("read surface %s: %w", format, status.Unsupported)
	}

	n, start, total := 0, 0, 0
	full := false
	for _, pl := range s.layout(format) {
		size := pl.rows * pl.width
		total += size
		if full || s.cursor >= start+size {
			start += size
			continue
		}
		for row := (s.cursor - start) / pl.width; row < pl.rows; row++ {
			if len(p)-n < pl.width {
				full = true
				break
			}
			src := pl.data[row*pl.pitch : row*pl.pitch+pl.width]
			n += copy(p[n:], src)
			s.cursor += pl.width
		}
		start += size
	}

	if n == 0 {
		if s.cursor >= total {
			return 0, io.EOF
		}
		return 0, io.ErrShortBuffer
	}
	return n, nil
}

// Remaining returns how many bytes Read has yet to deliver.
func (s *FrameSurface) Remaining() int {
	b := s.Bounds()
	rest := FrameSize(s.FourCC(), b.CropW, b.CropH) - s.cursor
	if rest < 0 {
		return 0
	}
	return rest
}
