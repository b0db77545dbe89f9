package onevpl

import (
	"errors"

	"github.com/opd-ai/onevpl/status"
)

var (
	// ErrNilEngine is returned when a session is created without an engine.
	ErrNilEngine = errors.New("engine cannot be nil")

	// ErrInvalidOptions wraps every options validation failure.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrSessionClosed is returned by calls on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrSessionFailed is returned once the engine reported a fatal status;
	// the session accepts no further work.
	ErrSessionFailed = errors.New("session failed")

	// ErrComponentClosed is returned by calls on a closed decoder, encoder
	// or video processor.
	ErrComponentClosed = errors.New("component closed")

	// ErrSyncTimeout is returned when every synchronize attempt timed out.
	// The operation is still pending and may be synchronized again.
	ErrSyncTimeout = errors.New("synchronize timed out")

	// ErrOperationConsumed is returned when the output of an operation was
	// already handed out or released.
	ErrOperationConsumed = errors.New("operation already consumed")
)

// sessionFatal reports whether st leaves the session unusable.
func sessionFatal(st status.Status) bool {
	switch st {
	case status.DeviceLost, status.DeviceFailed, status.GPUHang,
		status.InvalidHandle, status.NotInitialized:
		return true
	}
	return false
}
