//go:build !(darwin || (linux && (amd64 || arm64)))

package allocator

// trampolines reports no C callbacks; the bridge is still usable from Go
// engines through its dispatch methods.
func trampolines() (alloc, lock, unlock, getHDL, free uintptr) {
	return 0, 0, 0, 0, 0
}
