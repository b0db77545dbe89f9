package surface

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/status"
)

// DefaultSyncTimeout is used by Synchronize when no timeout is given.
const DefaultSyncTimeout = 100 * time.Millisecond

// FrameSurface exposes the raw picture memory of an engine surface as typed
// pixel planes.
//
// Plane slices returned by the accessors alias engine memory and are valid
// only while the surface is mapped. A FrameSurface is not safe for
// concurrent use; one accessor maps it at a time.
type FrameSurface struct {
	h        Handle
	mapped   bool
	access   MemoryFlag
	cursor   int
	shadow   []byte
	released bool
}

// New wraps an engine surface handle. A zero time stamp is replaced by
// TimeStampUnknown.
func New(h Handle) (*FrameSurface, error) {
	if h == nil {
		return nil, fmt.Errorf("surface: nil handle: %w", status.NullPtr)
	}

	if data := h.Data(); data != nil && data.TimeStamp == 0 {
		data.TimeStamp = TimeStampUnknown
	}

	return &FrameSurface{h: h}, nil
}

// Handle returns the underlying engine handle.
func (s *FrameSurface) Handle() Handle { return s.h }

// Info returns a copy of the frame info.
func (s *FrameSurface) Info() FrameInfo { return *s.h.Info() }

// FourCC returns the pixel layout of the surface.
func (s *FrameSurface) FourCC() FourCC { return s.h.Info().FourCC }

// TimeStamp returns the presentation time stamp in 90 kHz units.
func (s *FrameSurface) TimeStamp() uint64 { return s.h.Data().TimeStamp }

// SetTimeStamp sets the presentation time stamp carried to the engine.
func (s *FrameSurface) SetTimeStamp(ts uint64) { s.h.Data().TimeStamp = ts }

// FrameOrder returns the frame number assigned by the engine.
func (s *FrameSurface) FrameOrder() uint32 { return s.h.Data().FrameOrder }

// Corrupted returns the corruption flags reported by the decoder.
func (s *FrameSurface) Corrupted() uint16 { return s.h.Data().Corrupted }

// Bounds returns pitch, allocated size and crop rectangle.
func (s *FrameSurface) Bounds() Bounds {
	info := s.h.Info()
	return Bounds{
		Pitch:  s.h.Data().Pitch,
		Width:  int(info.Width),
		Height: int(info.Height),
		CropX:  int(info.CropX),
		CropY:  int(info.CropY),
		CropW:  int(info.CropW),
		CropH:  int(info.CropH),
	}
}

// Mapped reports whether the surface memory is currently mapped.
func (s *FrameSurface) Mapped() bool { return s.mapped }

// Map makes the surface memory accessible with the given access mode.
// Mapping an already mapped surface panics.
func (s *FrameSurface) Map(flag MemoryFlag) error {
	if s.mapped {
		panic("surface: Map called on a mapped surface")
	}

	if err := s.h.Map(flag); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "FrameSurface.Map",
			"access":   uint32(flag),
			"error":    err.Error(),
		}).Debug("Engine refused to map surface")
		return fmt.Errorf("map surface: %w", err)
	}

	s.mapped = true
	s.access = flag
	return nil
}

// Unmap invalidates the plane slices. Unmapping an unmapped surface is a
// no-op.
func (s *FrameSurface) Unmap() error {
	if !s.mapped {
		return nil
	}
	if err := s.h.Unmap(); err != nil {
		return fmt.Errorf("unmap surface: %w", err)
	}
	s.mapped = false
	s.access = 0
	return nil
}

// Synchronize waits until the pixels and metadata of the surface are ready.
// A zero timeout waits DefaultSyncTimeout.
func (s *FrameSurface) Synchronize(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	return s.h.Synchronize(timeout)
}

// Close unmaps the surface if needed and releases it back to the engine.
// Only the first call has an effect.
func (s *FrameSurface) Close() error {
	if s.released {
		return nil
	}
	s.released = true

	var unmapErr error
	if s.mapped {
		unmapErr = s.Unmap()
	}
	releaseErr := s.h.Release()

	logrus.WithFields(logrus.Fields{
		"function": "FrameSurface.Close",
		"fourcc":   s.FourCC().String(),
	}).Debug("Released surface")

	return errors.Join(unmapErr, releaseErr)
}
