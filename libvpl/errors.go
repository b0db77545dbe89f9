package libvpl

import "errors"

var (
	// ErrUnsupportedPlatform is returned where the library cannot be loaded
	// without cgo.
	ErrUnsupportedPlatform = errors.New("libvpl: unsupported platform")

	// ErrLibraryNotFound is returned when no candidate path could be opened.
	ErrLibraryNotFound = errors.New("libvpl: library not found")

	// ErrSessionClosed is returned by calls on a closed session.
	ErrSessionClosed = errors.New("libvpl: session closed")
)
