//go:build unix

package allocator

import "golang.org/x/sys/unix"

// allocPages maps n bytes of anonymous memory outside the Go heap, so plane
// pointers into it stay valid while the engine holds them.
func allocPages(n int) ([]byte, error) {
	return unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func freePages(b []byte) error {
	return unix.Munmap(b)
}
