package onevpl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

// Stats reports the traffic of a session.
type Stats struct {
	Submitted    uint64
	Completed    uint64
	Failed       uint64
	SyncTimeouts uint64
	// Outstanding counts operations submitted but neither synchronized nor
	// released.
	Outstanding int
	// TotalLatency and MaxLatency measure submit to completion.
	TotalLatency time.Duration
	MaxLatency   time.Duration
}

// MeanLatency returns the average submit to completion latency.
func (s Stats) MeanLatency() time.Duration {
	if s.Completed == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Completed)
}

// Session owns one engine session and the components created on it.
//
// Submit calls never block on engine completion. Every blocking wait runs
// on the session's sync pool, bounded by Options.SyncWorkers.
type Session struct {
	id   uuid.UUID
	eng  engine.Engine
	opts Options
	log  *logrus.Entry
	tp   TimeProvider

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	fatal  error
	closed bool
	stats  Stats
	dec    *Decoder
	enc    *Encoder
	vpp    *VideoProcessor
}

// NewSession creates a session on e. A nil opts uses NewOptions. The session
// takes ownership of e and closes it in Close.
func NewSession(e engine.Engine, opts *Options) (*Session, error) {
	if e == nil {
		return nil, ErrNilEngine
	}
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		eng:    e,
		opts:   *opts,
		log:    logrus.WithField("session_id", id.String()),
		tp:     getTimeProvider(opts.TimeProvider),
		sem:    semaphore.NewWeighted(opts.SyncWorkers),
		ctx:    ctx,
		cancel: cancel,
	}

	s.log.WithFields(logrus.Fields{
		"function":     "NewSession",
		"async_depth":  opts.AsyncDepth,
		"sync_workers": opts.SyncWorkers,
	}).Info("Session created")

	return s, nil
}

// ID returns the session identifier used in log entries.
func (s *Session) ID() uuid.UUID { return s.id }

// Options returns a copy of the session options.
func (s *Session) Options() Options { return s.opts }

// Version queries the engine API version.
func (s *Session) Version() (engine.Version, error) {
	if err := s.guard(); err != nil {
		return engine.Version{}, err
	}
	return s.eng.QueryVersion()
}

// SetAllocator installs an external frame allocator. It must be called
// before any component is created.
func (s *Session) SetAllocator(a *allocator.FrameAllocator) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.eng.SetFrameAllocator(a); err != nil {
		return fmt.Errorf("set frame allocator: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"function":  "Session.SetAllocator",
		"callbacks": a != nil && a.HasCallbacks(),
	}).Info("Frame allocator installed")
	return nil
}

// DecodeHeader parses the stream header buffered in bs without consuming it
// and returns parameters suitable for NewDecoder. MoreData means bs does not
// yet hold a complete header.
func (s *Session) DecodeHeader(bs *bitstream.Bitstream, pattern engine.IOPattern) (engine.VideoParams, error) {
	if err := s.guard(); err != nil {
		return engine.VideoParams{}, err
	}
	var params engine.VideoParams
	if err := s.eng.DecodeHeader(bs, &params); err != nil {
		return engine.VideoParams{}, s.fail("Session.DecodeHeader", err)
	}
	params.IOPattern = pattern
	if params.AsyncDepth == 0 {
		params.AsyncDepth = s.opts.AsyncDepth
	}
	return params, nil
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Err returns the fatal error that failed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// Close closes every component, waits for pending synchronizations and
// closes the engine. Further calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	dec, enc, vpp := s.dec, s.enc, s.vpp
	s.mu.Unlock()

	var errs []error
	if dec != nil {
		errs = append(errs, dec.close())
	}
	if enc != nil {
		errs = append(errs, enc.close())
	}
	if vpp != nil {
		errs = append(errs, vpp.close())
	}
	errs = append(errs, s.eng.Close())
	s.cancel()
	s.wg.Wait()

	s.log.WithFields(logrus.Fields{
		"function": "Session.Close",
	}).Info("Session closed")

	return errors.Join(errs...)
}

// guard rejects calls on a closed or failed session.
func (s *Session) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.fatal != nil {
		return fmt.Errorf("%w: %w", ErrSessionFailed, s.fatal)
	}
	return nil
}

// fail logs err and fails the session when err carries a fatal engine
// status. It returns err unchanged.
func (s *Session) fail(function string, err error) error {
	st := status.Of(err)
	entry := s.log.WithFields(logrus.Fields{
		"function": function,
		"status":   st.Code(),
		"error":    err.Error(),
	})
	if !sessionFatal(st) {
		entry.Debug("Engine call failed")
		return err
	}

	s.mu.Lock()
	if s.fatal == nil {
		s.fatal = err
	}
	s.mu.Unlock()
	entry.Error("Engine reported a fatal status, session failed")
	return err
}

// submitted classifies the result of an engine submit call. Flow control is
// returned unchanged, warnings count as success.
func (s *Session) submitted(function string, err error) error {
	if err == nil {
		s.mu.Lock()
		s.stats.Submitted++
		s.stats.Outstanding++
		s.mu.Unlock()
		return nil
	}

	st := status.Of(err)
	switch {
	case st == status.MoreDataSubmitTask:
		return status.MoreData
	case st == status.VideoParamChanged:
		s.log.WithFields(logrus.Fields{
			"function": function,
		}).Warn("Video parameters changed")
		return err
	case st.IsFlowControl():
		return err
	case st.Class() == status.ClassWarning:
		s.log.WithFields(logrus.Fields{
			"function": function,
			"status":   st.String(),
		}).Debug("Engine warning on submit")
		return s.submitted(function, nil)
	}

	s.mu.Lock()
	s.stats.Failed++
	s.mu.Unlock()
	return s.fail(function, err)
}

// synchronize waits for sp on the calling goroutine, retrying timeouts.
func (s *Session) synchronize(sp engine.SyncPoint) error {
	for attempt := 0; ; attempt++ {
		err := s.eng.SyncOperation(sp, s.opts.SyncTimeout)
		if err == nil {
			return nil
		}
		if !status.Of(err).IsTimeout() {
			return err
		}

		s.mu.Lock()
		s.stats.SyncTimeouts++
		s.mu.Unlock()

		if attempt >= s.opts.SyncRetries {
			return fmt.Errorf("%w after %d attempts: %w", ErrSyncTimeout, attempt+1, err)
		}
	}
}

// awaitOutput waits up to FrameTimeout for the pixels of a synchronized
// operation's output surface.
func (s *Session) awaitOutput(fs *surface.FrameSurface) error {
	err := fs.Synchronize(s.opts.FrameTimeout)
	if err == nil {
		return nil
	}
	if !status.Of(err).IsTimeout() {
		return fmt.Errorf("output surface: %w", err)
	}
	s.mu.Lock()
	s.stats.SyncTimeouts++
	s.mu.Unlock()
	return fmt.Errorf("%w waiting %v for output surface: %w", ErrSyncTimeout, s.opts.FrameTimeout, err)
}

// completed records the outcome of a synchronization.
func (s *Session) completed(op *Operation, err error) {
	latency := s.tp.Since(op.submittedAt)
	settled := !errors.Is(err, ErrSyncTimeout) && op.settle()

	s.mu.Lock()
	if settled {
		s.stats.Outstanding--
	}
	if err == nil {
		s.stats.Completed++
		s.stats.TotalLatency += latency
		if latency > s.stats.MaxLatency {
			s.stats.MaxLatency = latency
		}
	} else if !errors.Is(err, ErrSyncTimeout) {
		s.stats.Failed++
	}
	s.mu.Unlock()

	if err != nil {
		_ = s.fail("Operation.Synchronize", err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"function": "Operation.Synchronize",
		"kind":     op.kind,
		"latency":  latency,
	}).Debug("Operation complete")
}
