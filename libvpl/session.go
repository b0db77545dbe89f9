package libvpl

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/status"
)

// Implementation is an mfxIMPL value.
type Implementation int32

const (
	ImplementationSoftware Implementation = 0x0001
	ImplementationHardware Implementation = 0x0002
)

// Session is one dispatcher session. It implements engine.Core; decode,
// encode and processing entry points are not bound.
type Session struct {
	lib    *Library
	loader uintptr

	mu      sync.Mutex
	handle  uintptr
	alloc   *allocator.FrameAllocator
	closing bool
}

var _ engine.Core = (*Session)(nil)

// NewSession loads the implementations the dispatcher finds and creates a
// session on the index-th one.
func (l *Library) NewSession(index int) (*Session, error) {
	loader := l.mfxLoad()
	if loader == 0 {
		return nil, fmt.Errorf("libvpl: MFXLoad: %w", status.NotInitialized)
	}

	var handle uintptr
	if err := status.FromCode(l.mfxCreateSession(loader, uint32(index), &handle)).Err(); err != nil {
		l.mfxUnload(loader)
		return nil, fmt.Errorf("libvpl: create session %d: %w", index, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewSession",
		"index":    index,
	}).Debug("Created dispatcher session")

	return &Session{lib: l, loader: loader, handle: handle}, nil
}

func (s *Session) session() (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || s.handle == 0 {
		return 0, ErrSessionClosed
	}
	return s.handle, nil
}

// QueryVersion returns the API version of the loaded implementation.
func (s *Session) QueryVersion() (engine.Version, error) {
	h, err := s.session()
	if err != nil {
		return engine.Version{}, err
	}
	var v abi.Version
	if err := status.FromCode(s.lib.mfxQueryVersion(h, &v)).Err(); err != nil {
		return engine.Version{}, err
	}
	return engine.Version{Major: v.Major, Minor: v.Minor}, nil
}

// Implementation returns the implementation the session runs on.
func (s *Session) Implementation() (Implementation, error) {
	h, err := s.session()
	if err != nil {
		return 0, err
	}
	var impl int32
	if err := status.FromCode(s.lib.mfxQueryIMPL(h, &impl)).Err(); err != nil {
		return 0, err
	}
	return Implementation(impl), nil
}

// SyncOperation waits for sp, rounding wait down to whole milliseconds.
func (s *Session) SyncOperation(sp engine.SyncPoint, wait time.Duration) error {
	h, err := s.session()
	if err != nil {
		return err
	}
	return status.FromCode(s.lib.syncOperation(h, uintptr(sp), uint32(wait/time.Millisecond))).Err()
}

// SetFrameAllocator installs a. The allocator must stay open until the
// session is closed; the session keeps a reference to it.
func (s *Session) SetFrameAllocator(a *allocator.FrameAllocator) error {
	h, err := s.session()
	if err != nil {
		return err
	}
	var desc uintptr
	if a != nil {
		if !a.HasCallbacks() {
			return fmt.Errorf("libvpl: allocator without callbacks: %w", status.Unsupported)
		}
		desc = a.Descriptor()
	}
	if err := status.FromCode(s.lib.setFrameAllocator(h, desc)).Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.alloc = a
	s.mu.Unlock()
	return nil
}

type surfaceGetter func(session uintptr, surface *uintptr) int32

func (s *Session) getSurface(name string, get surfaceGetter) (*RawSurface, error) {
	h, err := s.session()
	if err != nil {
		return nil, err
	}
	var p uintptr
	if err := status.FromCode(get(h, &p)).Err(); err != nil {
		return nil, fmt.Errorf("libvpl: %s: %w", name, err)
	}
	if p == 0 {
		return nil, fmt.Errorf("libvpl: %s: %w", name, status.NullPtr)
	}
	return newRawSurface((*abi.FrameSurface)(unsafe.Pointer(p))), nil
}

// GetSurfaceForDecode returns an engine-allocated decoder output surface.
func (s *Session) GetSurfaceForDecode() (*RawSurface, error) {
	return s.getSurface("GetSurfaceForDecode", s.lib.getSurfaceForDecode)
}

// GetSurfaceForEncode returns an engine-allocated encoder input surface.
func (s *Session) GetSurfaceForEncode() (*RawSurface, error) {
	return s.getSurface("GetSurfaceForEncode", s.lib.getSurfaceForEncode)
}

// GetSurfaceForVPPIn returns an engine-allocated processor input surface.
func (s *Session) GetSurfaceForVPPIn() (*RawSurface, error) {
	return s.getSurface("GetSurfaceForVPPIn", s.lib.getSurfaceForVPPIn)
}

// GetSurfaceForVPPOut returns an engine-allocated processor output surface.
func (s *Session) GetSurfaceForVPPOut() (*RawSurface, error) {
	return s.getSurface("GetSurfaceForVPPOut", s.lib.getSurfaceForVPPOut)
}

// Close closes the session and unloads its implementations. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	h := s.handle
	s.handle = 0
	s.mu.Unlock()

	var err error
	if h != 0 {
		if st := status.FromCode(s.lib.mfxClose(h)); !st.Ok() {
			err = fmt.Errorf("libvpl: MFXClose: %w", st)
		}
	}
	if s.loader != 0 {
		s.lib.mfxUnload(s.loader)
		s.loader = 0
	}

	logrus.WithFields(logrus.Fields{
		"function": "Session.Close",
	}).Debug("Closed dispatcher session")
	return err
}
