package libvpl

import (
	"sync"
	"time"
	"unsafe"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

// RawSurface is a surface allocated by the engine and reached through its
// mfxFrameSurfaceInterface. It implements surface.Handle.
//
// Info and Data are snapshots of the descriptor taken when the surface is
// obtained and after every Map. Time stamp changes made through Data are
// written back before Unmap and Release.
type RawSurface struct {
	mu   sync.Mutex
	raw  *abi.FrameSurface
	info surface.FrameInfo
	data surface.FrameData
}

var _ surface.Handle = (*RawSurface)(nil)

func newRawSurface(raw *abi.FrameSurface) *RawSurface {
	s := &RawSurface{raw: raw}
	s.load()
	return s
}

func (s *RawSurface) load() {
	s.info = allocator.FrameInfoFromABI(&s.raw.Info)
	s.data = allocator.NewFrameData(&s.raw.Data).Surface(s.info)
}

func (s *RawSurface) store() {
	s.raw.Data.TimeStamp = s.data.TimeStamp
	s.raw.Data.FrameOrder = s.data.FrameOrder
}

func (s *RawSurface) iface() *abi.FrameSurfaceInterface {
	if s.raw == nil || s.raw.FrameInterface == 0 {
		return nil
	}
	return (*abi.FrameSurfaceInterface)(unsafe.Pointer(s.raw.FrameInterface))
}

func (s *RawSurface) call(pick func(*abi.FrameSurfaceInterface) uintptr, args ...uintptr) error {
	fi := s.iface()
	if fi == nil {
		return status.InvalidHandle
	}
	return callStatus(pick(fi), append([]uintptr{uintptr(unsafe.Pointer(s.raw))}, args...)...).Err()
}

// Info returns the frame description.
func (s *RawSurface) Info() *surface.FrameInfo { return &s.info }

// Data returns the picture memory view.
func (s *RawSurface) Data() *surface.FrameData { return &s.data }

// Map maps the surface into host memory and refreshes Data.
func (s *RawSurface) Map(flag surface.MemoryFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store()
	if err := s.call(func(fi *abi.FrameSurfaceInterface) uintptr { return fi.Map }, uintptr(flag)); err != nil {
		return err
	}
	s.load()
	return nil
}

// Unmap releases the host mapping.
func (s *RawSurface) Unmap() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store()
	err := s.call(func(fi *abi.FrameSurfaceInterface) uintptr { return fi.Unmap })
	s.data.Y, s.data.U, s.data.V, s.data.Packed = nil, nil, nil, nil
	return err
}

// AddRef increments the engine reference count.
func (s *RawSurface) AddRef() error {
	return s.call(func(fi *abi.FrameSurfaceInterface) uintptr { return fi.AddRef })
}

// Release drops one engine reference. The surface must not be used after
// its last reference is released.
func (s *RawSurface) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store()
	return s.call(func(fi *abi.FrameSurfaceInterface) uintptr { return fi.Release })
}

// Synchronize waits up to timeout for the engine to finish writing.
func (s *RawSurface) Synchronize(timeout time.Duration) error {
	return s.call(func(fi *abi.FrameSurfaceInterface) uintptr { return fi.Synchronize }, uintptr(timeout/time.Millisecond))
}
