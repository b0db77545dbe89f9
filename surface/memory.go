package surface

import (
	"sync"
	"time"

	"github.com/opd-ai/onevpl/status"
)

// Memory supplies the pixel storage behind a MemoryHandle. Lock publishes
// plane slices and pitch into d; Unlock withdraws them.
type Memory interface {
	Lock(d *FrameData) error
	Unlock(d *FrameData) error
}

// heapMemory keeps planes in one Go allocation.
type heapMemory struct {
	y, u, v, packed []byte
	pitch           int
}

// NewHeapMemory allocates Go memory for a frame described by info, sized by
// its allocated (not cropped) width and height.
func NewHeapMemory(info FrameInfo) Memory {
	f := info.FourCC
	w, h := int(info.Width), int(info.Height)
	pitch := w * f.BytesPerPixel()

	m := &heapMemory{pitch: pitch}
	buf := make([]byte, PitchedFrameSize(f, pitch, h))
	luma, chroma := PlaneBytes(f, pitch, h)
	switch f {
	case FourCCIYUV, FourCCYV12:
		m.y = buf[:luma]
		m.u = buf[luma : luma+chroma]
		m.v = buf[luma+chroma:]
	case FourCCNV12:
		m.y = buf[:luma]
		m.u = buf[luma:]
	default:
		m.packed = buf
	}
	return m
}

func (m *heapMemory) Lock(d *FrameData) error {
	d.Y, d.U, d.V, d.Packed = m.y, m.u, m.v, m.packed
	d.Pitch = m.pitch
	return nil
}

func (m *heapMemory) Unlock(d *FrameData) error {
	d.Y, d.U, d.V, d.Packed = nil, nil, nil, nil
	return nil
}

// MemoryHandle is a Handle implemented in Go on top of a Memory. It carries
// a reference count and a readiness signal, which an engine uses to model
// asynchronous completion.
type MemoryHandle struct {
	mu        sync.Mutex
	info      FrameInfo
	data      FrameData
	mem       Memory
	mapped    bool
	refs      int
	ready     chan struct{}
	isReady   bool
	onRelease func(*MemoryHandle)
}

// NewMemoryHandle returns a handle with one reference that is already
// ready. onRelease, if set, runs when the last reference is dropped.
func NewMemoryHandle(info FrameInfo, mem Memory, onRelease func(*MemoryHandle)) *MemoryHandle {
	if mem == nil {
		mem = NewHeapMemory(info)
	}
	h := &MemoryHandle{
		info:      info,
		mem:       mem,
		refs:      1,
		ready:     make(chan struct{}),
		onRelease: onRelease,
	}
	h.data.TimeStamp = TimeStampUnknown
	h.markReadyLocked()
	return h
}

// Info implements Handle.
func (h *MemoryHandle) Info() *FrameInfo { return &h.info }

// Data implements Handle.
func (h *MemoryHandle) Data() *FrameData { return &h.data }

// Map implements Handle. It waits for the frame to become ready unless
// MemoryNoWait is set, in which case a pending frame yields DeviceBusy.
func (h *MemoryHandle) Map(flag MemoryFlag) error {
	h.mu.Lock()
	ready := h.ready
	if h.mapped {
		h.mu.Unlock()
		return status.ResourceMapped
	}
	h.mu.Unlock()

	if flag&MemoryNoWait != 0 {
		select {
		case <-ready:
		default:
			return status.DeviceBusy
		}
	} else {
		<-ready
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mapped {
		return status.ResourceMapped
	}
	if err := h.mem.Lock(&h.data); err != nil {
		return err
	}
	h.mapped = true
	return nil
}

// Unmap implements Handle.
func (h *MemoryHandle) Unmap() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.mapped {
		return status.UndefinedBehavior
	}
	if err := h.mem.Unlock(&h.data); err != nil {
		return err
	}
	h.mapped = false
	return nil
}

// AddRef takes an additional reference.
func (h *MemoryHandle) AddRef() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

// RefCount returns the number of outstanding references.
func (h *MemoryHandle) RefCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

// Release implements Handle. Dropping the last reference runs onRelease.
func (h *MemoryHandle) Release() error {
	h.mu.Lock()
	if h.refs <= 0 {
		h.mu.Unlock()
		return status.UndefinedBehavior
	}
	h.refs--
	last := h.refs == 0
	h.mu.Unlock()

	if last && h.onRelease != nil {
		h.onRelease(h)
	}
	return nil
}

// Synchronize implements Handle. It returns InExecution when the frame is
// not ready within timeout.
func (h *MemoryHandle) Synchronize(timeout time.Duration) error {
	h.mu.Lock()
	ready := h.ready
	h.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ready:
		return nil
	case <-timer.C:
		return status.InExecution
	}
}

// Acquire resets a released handle for reuse: one reference, not ready,
// unknown time stamp.
func (h *MemoryHandle) Acquire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs = 1
	h.ready = make(chan struct{})
	h.isReady = false
	h.data.TimeStamp = TimeStampUnknown
	h.data.FrameOrder = 0
	h.data.Corrupted = 0
}

// MarkReady signals that the pixels are complete.
func (h *MemoryHandle) MarkReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.markReadyLocked()
}

func (h *MemoryHandle) markReadyLocked() {
	if !h.isReady {
		h.isReady = true
		close(h.ready)
	}
}

// Access locks the memory read-write for engine-side use, runs fn with the
// plane view and unlocks again. It does not interact with Map.
func (h *MemoryHandle) Access(fn func(d *FrameData) error) error {
	var d FrameData
	if err := h.mem.Lock(&d); err != nil {
		return err
	}
	ferr := fn(&d)
	if err := h.mem.Unlock(&d); err != nil && ferr == nil {
		return err
	}
	return ferr
}
