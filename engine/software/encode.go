package software

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

// pendingFrame is an encoder input waiting to be emitted. Its pixels are
// captured by read on the engine goroutine.
type pendingFrame struct {
	info      surface.FrameInfo
	frame     []byte
	read      *task
	timeStamp uint64
	frameType bitstream.FrameType
}

func (f *pendingFrame) unitSize() int {
	return unitHeaderSize + surface.FrameSize(f.info.FourCC, int(f.info.CropW), int(f.info.CropH))
}

type encoder struct {
	params   engine.VideoParams
	pool     *pool
	cache    []*pendingFrame
	reserved map[*bitstream.Bitstream]int
	stat     engine.EncodeStat
}

func (c *encoder) close() error {
	c.cache = nil
	return c.pool.close()
}

// EncodeInit implements engine.EncodeEngine.
func (e *Engine) EncodeInit(params engine.VideoParams) error {
	if err := checkRawCodec(params.Codec); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", status.InvalidVideoParam, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return status.NotInitialized
	}
	if e.enc != nil {
		return status.UndefinedBehavior
	}

	var bridge *allocator.FrameAllocator
	if params.IOPattern&engine.IOPatternInVideoMemory != 0 {
		bridge = e.bridge
	}
	p, err := newPool(params.Frame, e.opts.PoolSize, bridge,
		allocator.MemTypeVideoMemoryEncoderTarget|allocator.MemTypeFromEncode)
	if err != nil {
		return err
	}
	e.enc = &encoder{params: params, pool: p, reserved: make(map[*bitstream.Bitstream]int)}

	logrus.WithFields(logrus.Fields{
		"function": "Engine.EncodeInit",
		"fourcc":   params.Frame.FourCC.String(),
		"width":    params.Frame.CropW,
		"height":   params.Frame.CropH,
		"external": p.bridge != nil,
	}).Info("Initialized encoder")
	return nil
}

// EncodeReset implements engine.EncodeEngine. Cached frames are dropped.
func (e *Engine) EncodeReset(params engine.VideoParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.enc
	if c == nil {
		return status.NotInitialized
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", status.InvalidVideoParam, err)
	}
	if !fitsPool(c.pool.info, params.Frame) {
		return status.IncompatibleVideoParam
	}
	c.cache = nil
	c.params = params
	return nil
}

// EncodeClose implements engine.EncodeEngine.
func (e *Engine) EncodeClose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc == nil {
		return status.NotInitialized
	}
	err := e.enc.close()
	e.enc = nil
	return err
}

// EncodeGetParams implements engine.EncodeEngine.
func (e *Engine) EncodeGetParams() (engine.VideoParams, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc == nil {
		return engine.VideoParams{}, status.NotInitialized
	}
	return e.enc.params, nil
}

// GetEncodeStat implements engine.EncodeEngine.
func (e *Engine) GetEncodeStat() (engine.EncodeStat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc == nil {
		return engine.EncodeStat{}, status.NotInitialized
	}
	st := e.enc.stat
	st.NumCachedFrame = uint64(len(e.enc.cache))
	return st, nil
}

// GetSurfaceForEncode implements engine.EncodeEngine.
func (e *Engine) GetSurfaceForEncode() (surface.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc == nil {
		return nil, status.NotInitialized
	}
	h := e.enc.pool.acquire()
	if h == nil {
		return nil, status.MoreSurface
	}
	h.MarkReady()
	return h, nil
}

// refCounted is implemented by handles the engine can hold on to while it
// still needs their pixels.
type refCounted interface {
	AddRef()
}

// captureLocked schedules a read of in's visible pixels on the engine goroutine.
// e.mu must be held.
func (e *Engine) captureLocked(in surface.Handle, info surface.FrameInfo, dst *[]byte) *task {
	rc, holds := in.(refCounted)
	if holds {
		rc.AddRef()
	}
	return e.enqueueLocked(func() error {
		if holds {
			defer in.Release()
		}
		if err := in.Map(surface.MemoryRead); err != nil {
			return err
		}
		defer in.Unmap()
		frame, err := surface.PackFrame(info, in.Data())
		if err != nil {
			return err
		}
		*dst = frame
		return nil
	})
}

// EncodeFrameAsync implements engine.EncodeEngine.
func (e *Engine) EncodeFrameAsync(ctrl *engine.EncodeCtrl, in surface.Handle, out *bitstream.Bitstream) (engine.SyncPoint, error) {
	if err := e.fault("encode"); err != nil {
		return 0, err
	}
	if out == nil {
		return 0, status.NullPtr
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.enc
	if c == nil {
		return 0, status.NotInitialized
	}

	if in == nil {
		if len(c.cache) == 0 {
			return 0, status.MoreData
		}
		return e.emitEncodedLocked(c, out)
	}

	info := *in.Info()
	if info.FourCC != c.params.Frame.FourCC {
		return 0, fmt.Errorf("encode %s input into %s stream: %w",
			info.FourCC, c.params.Frame.FourCC, status.IncompatibleVideoParam)
	}
	if info.CropW > c.params.Frame.Width || info.CropH > c.params.Frame.Height {
		return 0, status.IncompatibleVideoParam
	}

	f := &pendingFrame{
		info:      info,
		timeStamp: in.Data().TimeStamp,
		frameType: bitstream.FrameTypeI | bitstream.FrameTypeREF | bitstream.FrameTypeIDR,
	}
	if ctrl != nil && ctrl.FrameType != bitstream.FrameTypeUnknown {
		f.frameType = ctrl.FrameType
	}

	// the frame emitted by this call must fit before the input is accepted
	if len(c.cache)+1 > e.opts.Delay {
		next := f
		if len(c.cache) > 0 {
			next = c.cache[0]
		}
		if out.Free()-c.reserved[out] < next.unitSize() {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.EncodeFrameAsync",
				"free":     out.Free() - c.reserved[out],
				"need":     next.unitSize(),
			}).Warn("Output bitstream too small")
			return 0, status.NotEnoughBuffer
		}
	}

	f.read = e.captureLocked(in, info, &f.frame)
	c.cache = append(c.cache, f)

	if len(c.cache) <= e.opts.Delay {
		return 0, status.MoreData
	}
	return e.emitEncodedLocked(c, out)
}

// emitEncodedLocked schedules the oldest cached frame to be appended to out.
func (e *Engine) emitEncodedLocked(c *encoder, out *bitstream.Bitstream) (engine.SyncPoint, error) {
	f := c.cache[0]
	size := f.unitSize()
	if out.Free()-c.reserved[out] < size {
		return 0, status.NotEnoughBuffer
	}
	c.cache = c.cache[1:]
	c.reserved[out] += size

	t := e.enqueueLocked(func() error {
		e.mu.Lock()
		c.reserved[out] -= size
		if c.reserved[out] <= 0 {
			delete(c.reserved, out)
		}
		e.mu.Unlock()

		<-f.read.done
		if f.read.err != nil {
			return f.read.err
		}
		unit := appendUnit(make([]byte, 0, size), unitHeader{
			Width:  int(f.info.CropW),
			Height: int(f.info.CropH),
			FourCC: f.info.FourCC,
		}, f.frame)
		if _, err := out.Write(unit); err != nil {
			return fmt.Errorf("write encoded unit: %w: %w", status.NotEnoughBuffer, err)
		}
		out.SetTimeStamp(f.timeStamp)
		if f.timeStamp != bitstream.TimeStampUnknown {
			out.SetDecodeTimeStamp(int64(f.timeStamp))
		}
		out.SetFrameType(f.frameType)
		out.SetPicStruct(bitstream.PicStructProgressive)

		e.mu.Lock()
		c.stat.NumFrame++
		c.stat.NumBit += uint64(len(unit)) * 8
		e.mu.Unlock()
		return nil
	})
	return e.publishLocked(t), nil
}
