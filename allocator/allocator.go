package allocator

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/status"
)

// ErrShortAllocation reports an alloc handler that published fewer memory
// identifiers than the request minimum.
var ErrShortAllocation = errors.New("allocation below minimum frame count")

// AllocHandler allocates the frames described by req and publishes their
// memory identifiers through resp.SetMemIDs.
type AllocHandler func(req FrameAllocRequest, resp FrameAllocResponse) error

// LockHandler publishes the plane pointers of frame mid into data.
type LockHandler func(mid MemID, data FrameData) error

// UnlockHandler withdraws the plane pointers of frame mid from data.
type UnlockHandler func(mid MemID, data FrameData) error

// GetHDLHandler returns the native handle of frame mid.
type GetHDLHandler func(mid MemID) (uintptr, error)

// FreeHandler releases every frame listed in resp.
type FreeHandler func(resp FrameAllocResponse) error

var (
	registry sync.Map // uintptr -> *FrameAllocator
	nextID   atomic.Uintptr
)

// FrameAllocator bridges the engine's frame allocation callbacks to Go
// handlers.
//
// The engine sees a C-layout descriptor holding a context value and five
// function pointers. The context value is a registry key, not a Go pointer,
// so the bridge can be referenced from engine threads without pinning the
// FrameAllocator itself. The descriptor is heap allocated and pinned until
// Close.
type FrameAllocator struct {
	id  uintptr
	raw *abi.FrameAllocator

	mu       sync.RWMutex
	alloc    AllocHandler
	lock     LockHandler
	unlock   UnlockHandler
	getHDL   GetHDLHandler
	free     FreeHandler
	pinner   runtime.Pinner
	closed   bool
	tablesMu sync.Mutex
	tables   map[uintptr]*memIDTable
}

// memIDTable is a memory identifier table owned by the bridge while the
// engine holds its address.
type memIDTable struct {
	ids    []uintptr
	pinner runtime.Pinner
}

// New creates a bridge with no handlers and registers it for callback
// dispatch.
func New() *FrameAllocator {
	a := &FrameAllocator{
		id:     nextID.Add(1),
		raw:    new(abi.FrameAllocator),
		tables: make(map[uintptr]*memIDTable),
	}
	a.pinner.Pin(a.raw)
	a.raw.PThis = a.id
	a.raw.Alloc, a.raw.Lock, a.raw.Unlock, a.raw.GetHDL, a.raw.Free = trampolines()

	registry.Store(a.id, a)

	logrus.WithFields(logrus.Fields{
		"function":  "allocator.New",
		"context":   a.id,
		"callbacks": a.raw.Alloc != 0,
	}).Debug("Created frame allocator bridge")

	return a
}

// lookup recovers a bridge from the engine context value.
func lookup(pthis uintptr) *FrameAllocator {
	v, ok := registry.Load(pthis)
	if !ok {
		return nil
	}
	return v.(*FrameAllocator)
}

// Context returns the value the engine passes back as pthis.
func (a *FrameAllocator) Context() uintptr { return a.id }

// Descriptor returns the address of the pinned C-layout descriptor, ready to
// be handed to the engine. The function pointers are zero on platforms
// without C callback support.
func (a *FrameAllocator) Descriptor() uintptr {
	return uintptr(unsafe.Pointer(a.raw))
}

// HasCallbacks reports whether the descriptor carries C-callable function
// pointers.
func (a *FrameAllocator) HasCallbacks() bool { return a.raw.Alloc != 0 }

// SetAllocHandler installs the alloc handler.
func (a *FrameAllocator) SetAllocHandler(h AllocHandler) {
	a.mu.Lock()
	a.alloc = h
	a.mu.Unlock()
}

// SetLockHandler installs the lock handler.
func (a *FrameAllocator) SetLockHandler(h LockHandler) {
	a.mu.Lock()
	a.lock = h
	a.mu.Unlock()
}

// SetUnlockHandler installs the unlock handler.
func (a *FrameAllocator) SetUnlockHandler(h UnlockHandler) {
	a.mu.Lock()
	a.unlock = h
	a.mu.Unlock()
}

// SetGetHDLHandler installs the get-handle handler.
func (a *FrameAllocator) SetGetHDLHandler(h GetHDLHandler) {
	a.mu.Lock()
	a.getHDL = h
	a.mu.Unlock()
}

// SetFreeHandler installs the free handler.
func (a *FrameAllocator) SetFreeHandler(h FreeHandler) {
	a.mu.Lock()
	a.free = h
	a.mu.Unlock()
}

// Close unregisters the bridge, reclaims every memory identifier table still
// held by the engine and unpins the descriptor. Callbacks arriving after
// Close report InvalidHandle.
func (a *FrameAllocator) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	registry.Delete(a.id)

	a.tablesMu.Lock()
	for addr, t := range a.tables {
		t.pinner.Unpin()
		delete(a.tables, addr)
	}
	a.tablesMu.Unlock()

	a.pinner.Unpin()

	logrus.WithFields(logrus.Fields{
		"function": "FrameAllocator.Close",
		"context":  a.id,
	}).Debug("Closed frame allocator bridge")
	return nil
}

// OutstandingTables returns how many memory identifier tables the engine
// currently holds.
func (a *FrameAllocator) OutstandingTables() int {
	a.tablesMu.Lock()
	defer a.tablesMu.Unlock()
	return len(a.tables)
}

func (a *FrameAllocator) retainTable(ids []MemID) uintptr {
	if len(ids) == 0 {
		return 0
	}
	t := &memIDTable{ids: make([]uintptr, len(ids))}
	for i, id := range ids {
		t.ids[i] = uintptr(id)
	}
	t.pinner.Pin(&t.ids[0])
	addr := uintptr(unsafe.Pointer(&t.ids[0]))

	a.tablesMu.Lock()
	a.tables[addr] = t
	a.tablesMu.Unlock()
	return addr
}

func (a *FrameAllocator) reclaimTable(addr uintptr) {
	a.tablesMu.Lock()
	t, ok := a.tables[addr]
	delete(a.tables, addr)
	a.tablesMu.Unlock()
	if ok {
		t.pinner.Unpin()
	}
}

// toStatus maps a handler result onto the engine convention.
func toStatus(err error, fallback status.Status) status.Status {
	if err == nil {
		return status.None
	}
	var st status.Status
	if errors.As(err, &st) {
		return st
	}
	return fallback
}

func unregistered(callback string, ctx uintptr) status.Status {
	logrus.WithFields(logrus.Fields{
		"function": "FrameAllocator." + callback,
		"context":  ctx,
	}).Warn("Engine invoked an allocator callback with no handler registered")
	return status.Unsupported
}

func failed(callback string, err error, st status.Status) status.Status {
	if st != status.None {
		logrus.WithFields(logrus.Fields{
			"function": "FrameAllocator." + callback,
			"error":    err.Error(),
			"status":   st.String(),
		}).Debug("Allocator handler failed")
	}
	return st
}

// Alloc dispatches an allocation request to the alloc handler. A handler
// that fails, or returns fewer frames than NumFrameMin, yields an error
// status and the table it set is reclaimed.
func (a *FrameAllocator) Alloc(req *abi.FrameAllocRequest, resp *abi.FrameAllocResponse) status.Status {
	a.mu.RLock()
	h := a.alloc
	a.mu.RUnlock()
	if h == nil {
		return unregistered("Alloc", a.id)
	}
	if req == nil || resp == nil {
		return status.NullPtr
	}
	resp.AllocID = req.AllocID
	err := h(FrameAllocRequest{raw: req}, FrameAllocResponse{raw: resp, bridge: a})
	if err == nil && resp.NumFrameActual < req.NumFrameMin {
		err = fmt.Errorf("%w: handler returned %d frames, need %d",
			ErrShortAllocation, resp.NumFrameActual, req.NumFrameMin)
	}
	if err != nil {
		if resp.MIDs != 0 {
			a.reclaimTable(resp.MIDs)
		}
		resp.MIDs = 0
		resp.NumFrameActual = 0
	}
	return failed("Alloc", err, toStatus(err, status.MemoryAlloc))
}

// Lock dispatches a lock request to the lock handler.
func (a *FrameAllocator) Lock(mid MemID, data *abi.FrameData) status.Status {
	a.mu.RLock()
	h := a.lock
	a.mu.RUnlock()
	if h == nil {
		return unregistered("Lock", a.id)
	}
	if data == nil {
		return status.NullPtr
	}
	data.MemID = uintptr(mid)
	err := h(mid, FrameData{raw: data})
	if err == nil {
		data.Locked++
	}
	return failed("Lock", err, toStatus(err, status.LockMemory))
}

// Unlock dispatches an unlock request to the unlock handler.
func (a *FrameAllocator) Unlock(mid MemID, data *abi.FrameData) status.Status {
	a.mu.RLock()
	h := a.unlock
	a.mu.RUnlock()
	if h == nil {
		return unregistered("Unlock", a.id)
	}
	var view FrameData
	if data != nil {
		view = FrameData{raw: data}
	} else {
		view = FrameData{raw: new(abi.FrameData)}
	}
	err := h(mid, view)
	if err == nil && data != nil && data.Locked > 0 {
		data.Locked--
	}
	return failed("Unlock", err, toStatus(err, status.LockMemory))
}

// GetHDL dispatches a native handle query to the get-handle handler and
// stores the handle through out.
func (a *FrameAllocator) GetHDL(mid MemID, out *uintptr) status.Status {
	a.mu.RLock()
	h := a.getHDL
	a.mu.RUnlock()
	if h == nil {
		return unregistered("GetHDL", a.id)
	}
	if out == nil {
		return status.NullPtr
	}
	hdl, err := h(mid)
	if err == nil {
		*out = hdl
	}
	return failed("GetHDL", err, toStatus(err, status.InvalidHandle))
}

// Free dispatches a free request to the free handler, then reclaims the
// memory identifier table of resp.
func (a *FrameAllocator) Free(resp *abi.FrameAllocResponse) status.Status {
	a.mu.RLock()
	h := a.free
	a.mu.RUnlock()
	if h == nil {
		return unregistered("Free", a.id)
	}
	if resp == nil {
		return status.NullPtr
	}
	err := h(FrameAllocResponse{raw: resp, bridge: a})
	if resp.MIDs != 0 {
		a.reclaimTable(resp.MIDs)
		resp.MIDs = 0
		resp.NumFrameActual = 0
	}
	return failed("Free", err, toStatus(err, status.Unknown))
}
