package allocator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/limits"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

// ErrUnknownMemID is returned for a memory identifier the arena never
// allocated or has already freed.
var ErrUnknownMemID = errors.New("unknown memory id")

// arenaFrame is one frame of off-heap memory.
type arenaFrame struct {
	buf    []byte
	format surface.FourCC
	pitch  int
	height int
	locks  int
}

// Arena is a ready-made handler set that serves frame requests from system
// memory mapped outside the Go heap. Frames are keyed by MemID; lock
// publishes their plane pointers, free unmaps them.
type Arena struct {
	mu     sync.Mutex
	frames map[MemID]*arenaFrame
	next   MemID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{frames: make(map[MemID]*arenaFrame)}
}

// Install registers the arena's five handlers on a.
func (ar *Arena) Install(a *FrameAllocator) {
	a.SetAllocHandler(ar.Alloc)
	a.SetLockHandler(ar.Lock)
	a.SetUnlockHandler(ar.Unlock)
	a.SetGetHDLHandler(ar.GetHDL)
	a.SetFreeHandler(ar.Free)
}

// frameBytes returns the pitch and total size of one frame laid out the
// way FrameData.SetFrame expects.
func frameBytes(info surface.FrameInfo) (pitch, size int) {
	f := info.FourCC
	h := int(info.Height)
	pitch = limits.AlignWidth(int(info.Width)) * f.BytesPerPixel()
	return pitch, surface.PitchedFrameSize(f, pitch, h)
}

// Alloc serves a request with max(NumFrameMin, NumFrameSuggested) frames.
func (ar *Arena) Alloc(req FrameAllocRequest, resp FrameAllocResponse) error {
	info := req.Info()
	if !info.FourCC.Supported() {
		return fmt.Errorf("arena alloc %s: %w", info.FourCC, status.Unsupported)
	}
	if err := limits.ValidateFrameSize(int(info.Width), int(info.Height)); err != nil {
		return fmt.Errorf("arena alloc: %w", err)
	}

	n := req.NumFrameSuggested()
	if n < req.NumFrameMin() {
		n = req.NumFrameMin()
	}
	if err := limits.ValidateFrameCount(n); err != nil {
		return fmt.Errorf("arena alloc: %w", err)
	}

	pitch, size := frameBytes(info)

	ar.mu.Lock()
	defer ar.mu.Unlock()

	ids := make([]MemID, 0, n)
	for i := 0; i < n; i++ {
		buf, err := allocPages(size)
		if err != nil {
			ar.freeLocked(ids)
			return fmt.Errorf("arena alloc frame %d of %d: %w", i+1, n, err)
		}
		ar.next++
		id := ar.next
		ar.frames[id] = &arenaFrame{buf: buf, format: info.FourCC, pitch: pitch, height: int(info.Height)}
		ids = append(ids, id)
	}
	resp.SetMemIDs(ids)

	logrus.WithFields(logrus.Fields{
		"function":   "Arena.Alloc",
		"fourcc":     info.FourCC.String(),
		"width":      info.Width,
		"height":     info.Height,
		"frames":     n,
		"frame_size": size,
		"type":       uint16(req.Type()),
	}).Debug("Allocated frames")

	return nil
}

// Lock publishes the planes of frame mid.
func (ar *Arena) Lock(mid MemID, data FrameData) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	f, ok := ar.frames[mid]
	if !ok {
		return fmt.Errorf("arena lock %d: %w", mid, ErrUnknownMemID)
	}
	f.locks++
	data.SetFrame(f.format, f.buf, f.pitch, f.height)
	return nil
}

// Unlock withdraws the planes of frame mid.
func (ar *Arena) Unlock(mid MemID, data FrameData) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	f, ok := ar.frames[mid]
	if !ok {
		return fmt.Errorf("arena unlock %d: %w", mid, ErrUnknownMemID)
	}
	if f.locks > 0 {
		f.locks--
	}
	data.Clear()
	return nil
}

// GetHDL reports Unsupported: system memory has no native handle.
func (ar *Arena) GetHDL(mid MemID) (uintptr, error) {
	return 0, status.Unsupported
}

// Free unmaps every frame listed in resp.
func (ar *Arena) Free(resp FrameAllocResponse) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.freeLocked(resp.MemIDs())
}

func (ar *Arena) freeLocked(ids []MemID) error {
	var errs []error
	for _, id := range ids {
		f, ok := ar.frames[id]
		if !ok {
			errs = append(errs, fmt.Errorf("arena free %d: %w", id, ErrUnknownMemID))
			continue
		}
		delete(ar.frames, id)
		if err := freePages(f.buf); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live frames.
func (ar *Arena) Len() int {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return len(ar.frames)
}

// Close unmaps every frame still alive.
func (ar *Arena) Close() error {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	ids := make([]MemID, 0, len(ar.frames))
	for id := range ar.frames {
		ids = append(ids, id)
	}
	return ar.freeLocked(ids)
}
