//go:build darwin || (linux && (amd64 || arm64))

package allocator

import (
	"sync"

	"github.com/ebitengine/purego"
)

var (
	callbacksOnce sync.Once
	callbacks     [5]uintptr
)

// trampolines returns C function pointers for alloc, lock, unlock, gethdl
// and free. They are created once per process; purego callbacks are never
// freed.
func trampolines() (alloc, lock, unlock, getHDL, free uintptr) {
	callbacksOnce.Do(func() {
		callbacks[0] = purego.NewCallback(func(pthis, req, resp uintptr) uintptr {
			return statusWord(allocTrampoline(pthis, req, resp))
		})
		callbacks[1] = purego.NewCallback(func(pthis, mid, data uintptr) uintptr {
			return statusWord(lockTrampoline(pthis, mid, data))
		})
		callbacks[2] = purego.NewCallback(func(pthis, mid, data uintptr) uintptr {
			return statusWord(unlockTrampoline(pthis, mid, data))
		})
		callbacks[3] = purego.NewCallback(func(pthis, mid, handle uintptr) uintptr {
			return statusWord(getHDLTrampoline(pthis, mid, handle))
		})
		callbacks[4] = purego.NewCallback(func(pthis, resp uintptr) uintptr {
			return statusWord(freeTrampoline(pthis, resp))
		})
	})
	return callbacks[0], callbacks[1], callbacks[2], callbacks[3], callbacks[4]
}
