//go:build !unix

package allocator

import (
	"runtime"
	"sync"
	"unsafe"
)

var (
	pinnedMu sync.Mutex
	pinned   = map[uintptr]*runtime.Pinner{}
)

// allocPages falls back to pinned Go memory where mmap is unavailable.
func allocPages(n int) ([]byte, error) {
	b := make([]byte, n)
	p := new(runtime.Pinner)
	p.Pin(&b[0])

	pinnedMu.Lock()
	pinned[uintptr(unsafe.Pointer(&b[0]))] = p
	pinnedMu.Unlock()
	return b, nil
}

func freePages(b []byte) error {
	addr := uintptr(unsafe.Pointer(&b[0]))
	pinnedMu.Lock()
	p := pinned[addr]
	delete(pinned, addr)
	pinnedMu.Unlock()
	if p != nil {
		p.Unpin()
	}
	return nil
}
