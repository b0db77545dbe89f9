package onevpl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/engine/software"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

// MockTimeProvider is a deterministic time provider for testing.
type MockTimeProvider struct {
	currentTime time.Time
}

func (m *MockTimeProvider) Now() time.Time { return m.currentTime }

func (m *MockTimeProvider) Since(t time.Time) time.Duration { return m.currentTime.Sub(t) }

func (m *MockTimeProvider) Advance(d time.Duration) { m.currentTime = m.currentTime.Add(d) }

func newTestSession(t *testing.T, engineOpts func(*software.Options), opts *Options) (*Session, *software.Engine) {
	t.Helper()
	eo := software.NewOptions()
	if engineOpts != nil {
		engineOpts(eo)
	}
	eng := software.New(eo)
	s, err := NewSession(eng, opts)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s, eng
}

func pattern(format surface.FourCC, w, h int, seed byte) []byte {
	frame := make([]byte, surface.FrameSize(format, w, h))
	for i := range frame {
		frame[i] = seed + byte(i)*3
	}
	return frame
}

func rawStream(t *testing.T, format surface.FourCC, w, h int, frames ...[]byte) *bitstream.Bitstream {
	t.Helper()
	bs := bitstream.New(make([]byte, 1<<16), bitstream.CodecRaw)
	for _, f := range frames {
		unit, err := software.EncodeUnit(format, w, h, f)
		require.NoError(t, err)
		_, err = bs.Write(unit)
		require.NoError(t, err)
	}
	return bs
}

func readAll(t *testing.T, fs *surface.FrameSurface) []byte {
	t.Helper()
	var buf bytes.Buffer
	row := make([]byte, 4096)
	for {
		n, err := fs.Read(row)
		buf.Write(row[:n])
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			return buf.Bytes()
		}
	}
}

func TestNewSessionErrors(t *testing.T) {
	_, err := NewSession(nil, nil)
	assert.ErrorIs(t, err, ErrNilEngine)

	opts := NewOptions()
	opts.SyncWorkers = 0
	eng := software.New(nil)
	defer eng.Close()
	_, err = NewSession(eng, opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestSessionVersionAndClose(t *testing.T) {
	eng := software.New(nil)
	s, err := NewSession(eng, nil)
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, [16]byte(s.ID()))

	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, engine.Version{Major: 2, Minor: 9}, v)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Version()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionDecodeHeader(t *testing.T) {
	s, _ := newTestSession(t, nil, nil)
	bs := rawStream(t, surface.FourCCNV12, 16, 8, pattern(surface.FourCCNV12, 16, 8, 0))

	params, err := s.DecodeHeader(bs, engine.IOPatternOutSystemMemory)
	require.NoError(t, err)
	assert.Equal(t, engine.IOPatternOutSystemMemory, params.IOPattern)
	assert.Equal(t, 4, params.AsyncDepth)
	assert.Equal(t, surface.FourCCNV12, params.Frame.FourCC)

	short := bitstream.New(make([]byte, 16), bitstream.CodecRaw)
	_, err = s.DecodeHeader(short, engine.IOPatternOutSystemMemory)
	assert.ErrorIs(t, err, status.MoreData)
	assert.NoError(t, s.Err(), "flow control never fails the session")
}

func TestSessionFatalStatusFailsSession(t *testing.T) {
	var lost bool
	s, _ := newTestSession(t, func(o *software.Options) {
		o.FaultHook = func(call string) error {
			if lost {
				return status.DeviceLost
			}
			return nil
		}
	}, nil)
	bs := rawStream(t, surface.FourCCNV12, 16, 8, pattern(surface.FourCCNV12, 16, 8, 0))
	params, err := s.DecodeHeader(bs, engine.IOPatternSystemMemory)
	require.NoError(t, err)
	dec, err := s.NewDecoder(params)
	require.NoError(t, err)

	lost = true
	_, err = dec.Submit(bs)
	require.ErrorIs(t, err, status.DeviceLost)
	require.ErrorIs(t, s.Err(), status.DeviceLost)

	_, err = dec.Submit(bs)
	assert.ErrorIs(t, err, ErrSessionFailed)
	assert.ErrorIs(t, err, status.DeviceLost)
	_, err = s.Version()
	assert.ErrorIs(t, err, ErrSessionFailed)
	assert.Equal(t, uint64(1), s.Stats().Failed)
}

func TestSessionOperationErrorDoesNotFailSession(t *testing.T) {
	s, _ := newTestSession(t, nil, nil)
	bs := rawStream(t, surface.FourCCNV12, 16, 8, pattern(surface.FourCCNV12, 16, 8, 0))
	params, err := s.DecodeHeader(bs, engine.IOPatternSystemMemory)
	require.NoError(t, err)
	dec, err := s.NewDecoder(params)
	require.NoError(t, err)

	avc := bitstream.New(make([]byte, 64), bitstream.CodecAVC)
	_, err = dec.Submit(avc)
	assert.ErrorIs(t, err, status.Unsupported)
	assert.NoError(t, s.Err())
}

func TestSessionSetAllocator(t *testing.T) {
	s, _ := newTestSession(t, func(o *software.Options) {
		o.Delay = 0
		o.PoolSize = 2
	}, nil)
	bridge := allocator.New()
	arena := allocator.NewArena()
	arena.Install(bridge)
	defer func() {
		assert.NoError(t, arena.Close())
		assert.NoError(t, bridge.Close())
	}()
	require.NoError(t, s.SetAllocator(bridge))

	frame := pattern(surface.FourCCIYUV, 16, 8, 5)
	bs := rawStream(t, surface.FourCCIYUV, 16, 8, frame)
	params, err := s.DecodeHeader(bs, engine.IOPatternOutVideoMemory)
	require.NoError(t, err)
	dec, err := s.NewDecoder(params)
	require.NoError(t, err)
	assert.Equal(t, 2, arena.Len())

	fs, err := dec.Decode(context.Background(), bs)
	require.NoError(t, err)
	assert.Equal(t, frame, readAll(t, fs))
	require.NoError(t, fs.Close())

	require.NoError(t, dec.Close())
	assert.Zero(t, arena.Len())
}

func TestSessionStatsLatency(t *testing.T) {
	clock := &MockTimeProvider{currentTime: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)}
	opts := NewOptions()
	opts.TimeProvider = clock
	s, _ := newTestSession(t, func(o *software.Options) { o.Delay = 0 }, opts)

	bs := rawStream(t, surface.FourCCNV12, 16, 8, pattern(surface.FourCCNV12, 16, 8, 0))
	params, err := s.DecodeHeader(bs, engine.IOPatternSystemMemory)
	require.NoError(t, err)
	dec, err := s.NewDecoder(params)
	require.NoError(t, err)

	op, err := dec.Submit(bs)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Stats().Outstanding)

	clock.Advance(40 * time.Millisecond)
	_, err = op.Synchronize(context.Background())
	require.NoError(t, err)
	require.NoError(t, op.Release())

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Submitted)
	assert.Equal(t, uint64(1), st.Completed)
	assert.Zero(t, st.Outstanding)
	assert.Equal(t, 40*time.Millisecond, st.MeanLatency())
	assert.Equal(t, 40*time.Millisecond, st.MaxLatency)
}

func TestSyncTimeoutKeepsOperationPending(t *testing.T) {
	opts := NewOptions()
	opts.SyncTimeout = time.Millisecond
	opts.SyncRetries = 1
	s, _ := newTestSession(t, func(o *software.Options) {
		o.Delay = 0
		o.Latency = 200 * time.Millisecond
	}, opts)

	bs := rawStream(t, surface.FourCCNV12, 16, 8, pattern(surface.FourCCNV12, 16, 8, 0))
	params, err := s.DecodeHeader(bs, engine.IOPatternSystemMemory)
	require.NoError(t, err)
	dec, err := s.NewDecoder(params)
	require.NoError(t, err)

	op, err := dec.Submit(bs)
	require.NoError(t, err)
	_, err = op.Synchronize(context.Background())
	require.ErrorIs(t, err, ErrSyncTimeout)
	assert.Equal(t, StateSubmitted, op.State())
	assert.Equal(t, uint64(2), s.Stats().SyncTimeouts)
	assert.NoError(t, s.Err())

	require.Eventually(t, func() bool {
		_, err := op.Synchronize(context.Background())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateReady, op.State())
	require.NoError(t, op.Release())
}

func TestSynchronizeContextCancel(t *testing.T) {
	s, _ := newTestSession(t, func(o *software.Options) {
		o.Delay = 0
		o.Latency = 100 * time.Millisecond
	}, nil)
	bs := rawStream(t, surface.FourCCNV12, 16, 8, pattern(surface.FourCCNV12, 16, 8, 0))
	params, err := s.DecodeHeader(bs, engine.IOPatternSystemMemory)
	require.NoError(t, err)
	dec, err := s.NewDecoder(params)
	require.NoError(t, err)

	op, err := dec.Submit(bs)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = op.Synchronize(ctx)
	assert.True(t, errors.Is(err, context.Canceled))

	out, err := op.Synchronize(context.Background())
	require.NoError(t, err)
	assert.Same(t, op.Output(), out)
	require.NoError(t, op.Release())
	_, err = op.Synchronize(context.Background())
	assert.ErrorIs(t, err, ErrOperationConsumed)
}

// gatedEngine hands out decode surfaces whose pixels stay pending until
// gate is closed, after the engine already reported the work complete.
type gatedEngine struct {
	*software.Engine
	gate chan struct{}
}

func (e *gatedEngine) DecodeFrameAsync(bs *bitstream.Bitstream) (surface.Handle, engine.SyncPoint, error) {
	h, sp, err := e.Engine.DecodeFrameAsync(bs)
	if h != nil {
		h = &gatedHandle{Handle: h, gate: e.gate}
	}
	return h, sp, err
}

type gatedHandle struct {
	surface.Handle
	gate chan struct{}
}

func (h *gatedHandle) Synchronize(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.gate:
		return h.Handle.Synchronize(timeout)
	case <-timer.C:
		return status.InExecution
	}
}

func TestFrameTimeoutBoundsOutputWait(t *testing.T) {
	eo := software.NewOptions()
	eo.Delay = 0
	eng := &gatedEngine{Engine: software.New(eo), gate: make(chan struct{})}
	opts := NewOptions()
	opts.FrameTimeout = 5 * time.Millisecond
	s, err := NewSession(eng, opts)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })

	frame := pattern(surface.FourCCNV12, 16, 8, 4)
	bs := rawStream(t, surface.FourCCNV12, 16, 8, frame)
	params, err := s.DecodeHeader(bs, engine.IOPatternSystemMemory)
	require.NoError(t, err)
	dec, err := s.NewDecoder(params)
	require.NoError(t, err)

	op, err := dec.Submit(bs)
	require.NoError(t, err)
	_, err = op.Synchronize(context.Background())
	require.ErrorIs(t, err, ErrSyncTimeout)
	assert.Equal(t, StateSubmitted, op.State())
	assert.Equal(t, 1, s.Stats().Outstanding)
	assert.Equal(t, uint64(1), s.Stats().SyncTimeouts)
	assert.NoError(t, s.Err())

	close(eng.gate)
	out, err := op.Synchronize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame, readAll(t, out))
	require.NoError(t, op.Release())
	assert.Zero(t, s.Stats().Outstanding)
	assert.Equal(t, uint64(1), s.Stats().Completed)
}

func TestReleaseAbandonsSubmittedOperation(t *testing.T) {
	s, _ := newTestSession(t, func(o *software.Options) { o.Delay = 0 }, nil)
	bs := rawStream(t, surface.FourCCNV12, 16, 8,
		pattern(surface.FourCCNV12, 16, 8, 0), pattern(surface.FourCCNV12, 16, 8, 1))
	params, err := s.DecodeHeader(bs, engine.IOPatternSystemMemory)
	require.NoError(t, err)
	dec, err := s.NewDecoder(params)
	require.NoError(t, err)

	op, err := dec.Submit(bs)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Stats().Outstanding)
	require.NoError(t, op.Release())
	assert.Zero(t, s.Stats().Outstanding)
	require.NoError(t, op.Release())
	assert.Zero(t, s.Stats().Outstanding)
	_, err = op.Synchronize(context.Background())
	assert.ErrorIs(t, err, ErrOperationConsumed)

	// a synchronized operation is counted once
	op, err = dec.Submit(bs)
	require.NoError(t, err)
	_, err = op.Synchronize(context.Background())
	require.NoError(t, err)
	require.NoError(t, op.Release())
	assert.Zero(t, s.Stats().Outstanding)
}

// fullOutputEngine reports every encode as lacking output space.
type fullOutputEngine struct {
	*software.Engine
}

func (e *fullOutputEngine) EncodeFrameAsync(*engine.EncodeCtrl, surface.Handle, *bitstream.Bitstream) (engine.SyncPoint, error) {
	return 0, status.NotEnoughBuffer
}

func TestEncoderNotEnoughBufferWithoutOutput(t *testing.T) {
	eo := software.NewOptions()
	eo.Delay = 0
	s, err := NewSession(&fullOutputEngine{Engine: software.New(eo)}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })

	enc, err := s.NewEncoder(engine.VideoParams{
		Codec: bitstream.CodecRaw,
		Frame: surface.NewFrameInfo(surface.FourCCNV12, 16, 8),
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = enc.Submit(nil, nil, nil)
	})
	assert.ErrorIs(t, err, status.NotEnoughBuffer)
	assert.NoError(t, s.Err())
}
