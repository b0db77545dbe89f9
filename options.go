package onevpl

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/limits"
)

// Options contains the pipeline configuration of a Session.
type Options struct {
	// AsyncDepth bounds how many operations may be outstanding per component.
	AsyncDepth int
	// SyncTimeout is the wait granted to one synchronize attempt.
	SyncTimeout time.Duration
	// SyncRetries is how many timed-out attempts are retried before
	// ErrSyncTimeout is reported.
	SyncRetries int
	// SyncWorkers bounds the goroutines blocked in the engine on behalf of
	// Operation.Synchronize.
	SyncWorkers int64
	// FrameTimeout bounds the wait for the output surface of an operation
	// once the engine reports it complete.
	FrameTimeout time.Duration
	// IOPattern is applied to components created without one.
	IOPattern engine.IOPattern
	// BufferSize is the compressed buffer size suggested to applications
	// when the engine has no better estimate.
	BufferSize int
	// TimeProvider is used for latency accounting. Nil uses the wall clock.
	TimeProvider TimeProvider
}

// NewOptions creates a new default options.
func NewOptions() *Options {
	return &Options{
		AsyncDepth:   4,
		SyncTimeout:  100 * time.Millisecond,
		SyncRetries:  50,
		SyncWorkers:  2,
		FrameTimeout: 100 * time.Millisecond,
		IOPattern:    engine.IOPatternSystemMemory,
		BufferSize:   limits.DefaultBitstreamBuffer,
	}
}

// Validate checks that the options are usable.
func (o *Options) Validate() error {
	switch {
	case o.AsyncDepth < 1:
		return fmt.Errorf("%w: async depth %d", ErrInvalidOptions, o.AsyncDepth)
	case o.SyncTimeout <= 0:
		return fmt.Errorf("%w: sync timeout %v", ErrInvalidOptions, o.SyncTimeout)
	case o.SyncRetries < 0:
		return fmt.Errorf("%w: sync retries %d", ErrInvalidOptions, o.SyncRetries)
	case o.SyncWorkers < 1:
		return fmt.Errorf("%w: sync workers %d", ErrInvalidOptions, o.SyncWorkers)
	case o.FrameTimeout <= 0:
		return fmt.Errorf("%w: frame timeout %v", ErrInvalidOptions, o.FrameTimeout)
	}
	if err := limits.ValidateBitstreamBuffer(o.BufferSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

// fileOptions is the YAML form of Options. Absent keys keep their defaults.
type fileOptions struct {
	AsyncDepth   *int           `yaml:"async_depth"`
	SyncTimeout  *time.Duration `yaml:"sync_timeout"`
	SyncRetries  *int           `yaml:"sync_retries"`
	SyncWorkers  *int64         `yaml:"sync_workers"`
	FrameTimeout *time.Duration `yaml:"frame_timeout"`
	Memory       *string        `yaml:"memory"`
	BufferSize   *int           `yaml:"buffer_size"`
}

var memoryPatterns = map[string]engine.IOPattern{
	"system":    engine.IOPatternSystemMemory,
	"video":     engine.IOPatternVideoMemory,
	"video_in":  engine.IOPatternInVideoMemory | engine.IOPatternOutSystemMemory,
	"video_out": engine.IOPatternInSystemMemory | engine.IOPatternOutVideoMemory,
}

// LoadOptions reads options from YAML, starting from NewOptions. Durations
// use Go syntax ("250ms") and memory is one of system, video, video_in or
// video_out. Unknown keys are rejected.
//
//	async_depth: 8
//	sync_timeout: 250ms
//	memory: video_out
func LoadOptions(r io.Reader) (*Options, error) {
	var f fileOptions
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	o := NewOptions()
	if f.AsyncDepth != nil {
		o.AsyncDepth = *f.AsyncDepth
	}
	if f.SyncTimeout != nil {
		o.SyncTimeout = *f.SyncTimeout
	}
	if f.SyncRetries != nil {
		o.SyncRetries = *f.SyncRetries
	}
	if f.SyncWorkers != nil {
		o.SyncWorkers = *f.SyncWorkers
	}
	if f.FrameTimeout != nil {
		o.FrameTimeout = *f.FrameTimeout
	}
	if f.BufferSize != nil {
		o.BufferSize = *f.BufferSize
	}
	if f.Memory != nil {
		p, ok := memoryPatterns[*f.Memory]
		if !ok {
			return nil, fmt.Errorf("%w: memory %q", ErrInvalidOptions, *f.Memory)
		}
		o.IOPattern = p
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}
