package software

import (
	"fmt"
	"sync"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/surface"
)

// bridgeMemory is surface memory served by an allocator bridge.
type bridgeMemory struct {
	mu     sync.Mutex
	bridge *allocator.FrameAllocator
	mid    allocator.MemID
	info   surface.FrameInfo
	raw    abi.FrameData
}

func (m *bridgeMemory) Lock(d *surface.FrameData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.bridge.Lock(m.mid, &m.raw).Err(); err != nil {
		return err
	}
	view := allocator.NewFrameData(&m.raw).Surface(m.info)
	d.Y, d.U, d.V, d.Packed = view.Y, view.U, view.V, view.Packed
	d.Pitch = view.Pitch
	d.MemID = uintptr(m.mid)
	return nil
}

func (m *bridgeMemory) Unlock(d *surface.FrameData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Y, d.U, d.V, d.Packed = nil, nil, nil, nil
	return m.bridge.Unlock(m.mid, &m.raw).Err()
}

// pool is a fixed set of surfaces. A surface is free when nobody holds a
// reference to it.
type pool struct {
	info    surface.FrameInfo
	handles []*surface.MemoryHandle
	bridge  *allocator.FrameAllocator
	resp    *abi.FrameAllocResponse
}

// newPool creates n surfaces for info. When bridge is non-nil the memory is
// requested through it with the given type flags.
func newPool(info surface.FrameInfo, n int, bridge *allocator.FrameAllocator, memType allocator.MemType) (*pool, error) {
	p := &pool{info: info}

	var mids []uintptr
	if bridge != nil {
		req := &abi.FrameAllocRequest{
			Type:              uint16(memType | allocator.MemTypeExternalFrame),
			NumFrameMin:       uint16(n),
			NumFrameSuggested: uint16(n),
		}
		allocator.FrameInfoToABI(info, &req.Info)
		resp := new(abi.FrameAllocResponse)
		// the bridge rejects responses below NumFrameMin
		if err := bridge.Alloc(req, resp).Err(); err != nil {
			return nil, fmt.Errorf("allocate %d surfaces: %w", n, err)
		}
		p.bridge, p.resp = bridge, resp
		mids = abi.MemIDs(resp.MIDs, int(resp.NumFrameActual))
	}

	for i := 0; i < n; i++ {
		var mem surface.Memory
		if p.bridge != nil {
			mem = &bridgeMemory{bridge: bridge, mid: allocator.MemID(mids[i]), info: info}
		}
		h := surface.NewMemoryHandle(info, mem, nil)
		_ = h.Release()
		p.handles = append(p.handles, h)
	}
	return p, nil
}

// acquire returns a free surface holding one reference and not yet ready,
// or nil when every surface is in use.
func (p *pool) acquire() *surface.MemoryHandle {
	for _, h := range p.handles {
		if h.RefCount() == 0 {
			h.Acquire()
			return h
		}
	}
	return nil
}

// inUse returns the number of referenced surfaces.
func (p *pool) inUse() int {
	n := 0
	for _, h := range p.handles {
		if h.RefCount() > 0 {
			n++
		}
	}
	return n
}

// close returns allocator memory. Surfaces still referenced by the
// application keep their Go memory; allocator memory is freed regardless.
func (p *pool) close() error {
	if p.bridge == nil || p.resp == nil {
		return nil
	}
	err := p.bridge.Free(p.resp).Err()
	p.resp = nil
	return err
}
