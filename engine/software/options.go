package software

import (
	"time"

	"github.com/opd-ai/onevpl/engine"
)

// Options configures an Engine.
type Options struct {
	// Delay is the number of frames the decoder and encoder keep cached
	// before producing output.
	Delay int
	// PoolSize is the number of surfaces in each output pool.
	PoolSize int
	// Latency is added to every operation on the worker goroutine.
	Latency time.Duration
	// Version is reported by QueryVersion.
	Version engine.Version
	// FaultHook, when set, is called at the start of every asynchronous
	// submit with the call name ("decode", "encode", "vpp"). A non-nil
	// result is returned to the caller instead of running the call.
	FaultHook func(call string) error
}

// NewOptions returns the default options.
func NewOptions() *Options {
	return &Options{
		Delay:    1,
		PoolSize: 8,
		Version:  engine.Version{Major: 2, Minor: 9},
	}
}
