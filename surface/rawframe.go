package surface

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/status"
)

// rowPlane describes one plane as rows of visible bytes separated by pitch.
type rowPlane struct {
	data  []byte
	rows  int
	width int
	pitch int
}

// planeLayout returns the planes of format in the order they appear in a
// tightly packed frame. plane resolves "Y", "U", "V", "UV" and "packed".
func planeLayout(format FourCC, b Bounds, plane func(name string) []byte) []rowPlane {
	cw, ch := ChromaSize(b.CropW, b.CropH)
	cp := ChromaPitch(format, b.Pitch)
	switch format {
	case FourCCIYUV:
		return []rowPlane{
			{plane("Y"), b.CropH, b.CropW, b.Pitch},
			{plane("U"), ch, cw, cp},
			{plane("V"), ch, cw, cp},
		}
	case FourCCYV12:
		return []rowPlane{
			{plane("Y"), b.CropH, b.CropW, b.Pitch},
			{plane("V"), ch, cw, cp},
			{plane("U"), ch, cw, cp},
		}
	case FourCCNV12:
		return []rowPlane{
			{plane("Y"), b.CropH, b.CropW, b.Pitch},
			{plane("UV"), ch, 2 * cw, cp},
		}
	case FourCCRGB4, FourCCBGR4:
		return []rowPlane{{plane("packed"), b.CropH, b.CropW * 4, b.Pitch}}
	}
	return nil
}

// layout resolves planes through the checked accessors. The surface must be
// mapped.
func (s *FrameSurface) layout(format FourCC) []rowPlane {
	return planeLayout(format, s.Bounds(), func(name string) []byte {
		switch name {
		case "Y":
			return s.Y()
		case "U":
			return s.U()
		case "V":
			return s.V()
		case "UV":
			return s.UV()
		}
		return s.plane("packed", s.h.Data().Packed, true, 0, s.lumaLen())
	})
}

// dataLayout resolves planes straight from d without mapping checks.
func dataLayout(info FrameInfo, d *FrameData) []rowPlane {
	b := Bounds{
		Pitch: d.Pitch,
		Width: int(info.Width), Height: int(info.Height),
		CropX: int(info.CropX), CropY: int(info.CropY),
		CropW: int(info.CropW), CropH: int(info.CropH),
	}
	return planeLayout(info.FourCC, b, func(name string) []byte {
		switch name {
		case "Y":
			return d.Y
		case "U", "UV":
			return d.U
		case "V":
			return d.V
		}
		return d.Packed
	})
}

// unpack copies a tightly packed frame into the planes.
func unpack(planes []rowPlane, src []byte) {
	off := 0
	for _, pl := range planes {
		for row := 0; row < pl.rows; row++ {
			dst := row * pl.pitch
			copy(pl.data[dst:dst+pl.width], src[off:off+pl.width])
			off += pl.width
		}
	}
}

// pack copies the visible rows of the planes into dst and returns the
// number of bytes written.
func pack(planes []rowPlane, dst []byte) int {
	off := 0
	for _, pl := range planes {
		for row := 0; row < pl.rows; row++ {
			src := row * pl.pitch
			off += copy(dst[off:off+pl.width], pl.data[src:src+pl.width])
		}
	}
	return off
}

// PackFrame copies the visible pixels described by info out of d into a new
// tightly packed frame. d must hold plane memory for info.FourCC.
func PackFrame(info FrameInfo, d *FrameData) ([]byte, error) {
	size := FrameSize(info.FourCC, int(info.CropW), int(info.CropH))
	if size == 0 {
		return nil, fmt.Errorf("pack frame %s: %w", info.FourCC, status.Unsupported)
	}
	dst := make([]byte, size)
	return dst[:pack(dataLayout(info, d), dst)], nil
}

// UnpackFrame lays a tightly packed frame out into the planes of d,
// honouring its pitch.
func UnpackFrame(info FrameInfo, d *FrameData, frame []byte) error {
	size := FrameSize(info.FourCC, int(info.CropW), int(info.CropH))
	if size == 0 {
		return fmt.Errorf("unpack frame %s: %w", info.FourCC, status.Unsupported)
	}
	if len(frame) < size {
		return fmt.Errorf("unpack frame: %d bytes, need %d: %w", len(frame), size, status.NotEnoughBuffer)
	}
	unpack(dataLayout(info, d), frame)
	return nil
}

// ReadRawFrame reads exactly one tightly packed frame of the given format
// from r and lays it out into the surface planes, honouring the pitch. The
// surface is mapped for writing for the duration of the call.
//
// Running out of input returns status.MoreData. Any other read failure
// returns status.Unknown wrapping the cause.
func (s *FrameSurface) ReadRawFrame(r io.Reader, format FourCC) (err error) {
	if !format.Supported() {
		return fmt.Errorf("read raw frame %s: %w", format, status.Unsupported)
	}
	if format != s.FourCC() {
		return fmt.Errorf("read raw frame %s into %s surface: %w", format, s.FourCC(), status.IncompatibleVideoParam)
	}

	b := s.Bounds()
	size := FrameSize(format, b.CropW, b.CropH)
	if cap(s.shadow) < size {
		s.shadow = make([]byte, size)
	}
	shadow := s.shadow[:size]

	if err := s.Map(MemoryWrite); err != nil {
		return err
	}
	defer func() {
		if uerr := s.Unmap(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	if _, err := io.ReadFull(r, shadow); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return status.MoreData
		}
		logrus.WithFields(logrus.Fields{
			"function": "FrameSurface.ReadRawFrame",
			"fourcc":   format.String(),
			"error":    err.Error(),
		}).Warn("Raw frame read failed")
		return fmt.Errorf("read raw frame: %w: %w", status.Unknown, err)
	}

	unpack(s.layout(format), shadow)
	s.cursor = 0

	return nil
}
