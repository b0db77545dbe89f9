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

// decoded is a picture consumed from the bitstream whose pixels are written
// by its task.
type decoded struct {
	h    *surface.MemoryHandle
	work *task
}

type decoder struct {
	params engine.VideoParams
	pool   *pool
	cache  []decoded
	order  uint32
}

func (d *decoder) close() error {
	for _, c := range d.cache {
		_ = c.h.Release()
	}
	d.cache = nil
	return d.pool.close()
}

func checkRawCodec(c bitstream.Codec) error {
	if c != bitstream.CodecRaw {
		return fmt.Errorf("codec %s: %w", c, status.Unsupported)
	}
	return nil
}

// DecodeHeader implements engine.DecodeEngine.
func (e *Engine) DecodeHeader(bs *bitstream.Bitstream, params *engine.VideoParams) error {
	if bs == nil || params == nil {
		return status.NullPtr
	}
	if err := checkRawCodec(bs.Codec()); err != nil {
		return err
	}
	h, err := parseUnitHeader(bs.Bytes())
	if err != nil {
		return err
	}
	params.Codec = bitstream.CodecRaw
	params.Frame = surface.NewFrameInfo(h.FourCC, h.Width, h.Height)
	return nil
}

func (e *Engine) newOutputPool(info surface.FrameInfo, pattern engine.IOPattern, memType allocator.MemType) (*pool, error) {
	var bridge *allocator.FrameAllocator
	if pattern&engine.IOPatternOutVideoMemory != 0 {
		bridge = e.bridge
	}
	return newPool(info, e.opts.PoolSize, bridge, memType)
}

// DecodeInit implements engine.DecodeEngine.
func (e *Engine) DecodeInit(params engine.VideoParams) error {
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
	if e.dec != nil {
		return status.UndefinedBehavior
	}

	p, err := e.newOutputPool(params.Frame, params.IOPattern,
		allocator.MemTypeVideoMemoryDecoderTarget|allocator.MemTypeFromDecode)
	if err != nil {
		return err
	}
	e.dec = &decoder{params: params, pool: p}

	logrus.WithFields(logrus.Fields{
		"function": "Engine.DecodeInit",
		"fourcc":   params.Frame.FourCC.String(),
		"width":    params.Frame.CropW,
		"height":   params.Frame.CropH,
		"external": p.bridge != nil,
	}).Info("Initialized decoder")
	return nil
}

// DecodeReset implements engine.DecodeEngine. Cached pictures are dropped;
// the new parameters must fit the existing surface pool.
func (e *Engine) DecodeReset(params engine.VideoParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.dec
	if d == nil {
		return status.NotInitialized
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", status.InvalidVideoParam, err)
	}
	if !fitsPool(d.pool.info, params.Frame) {
		return status.IncompatibleVideoParam
	}
	for _, c := range d.cache {
		_ = c.h.Release()
	}
	d.cache = nil
	d.params = params
	return nil
}

// DecodeClose implements engine.DecodeEngine.
func (e *Engine) DecodeClose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dec == nil {
		return status.NotInitialized
	}
	err := e.dec.close()
	e.dec = nil
	return err
}

// DecodeGetParams implements engine.DecodeEngine.
func (e *Engine) DecodeGetParams() (engine.VideoParams, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dec == nil {
		return engine.VideoParams{}, status.NotInitialized
	}
	return e.dec.params, nil
}

// GetSurfaceForDecode implements engine.DecodeEngine.
func (e *Engine) GetSurfaceForDecode() (surface.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dec == nil {
		return nil, status.NotInitialized
	}
	h := e.dec.pool.acquire()
	if h == nil {
		return nil, status.MoreSurface
	}
	h.MarkReady()
	return h, nil
}

// fitsPool reports whether frames of next fit the surfaces allocated for
// have.
func fitsPool(have, next surface.FrameInfo) bool {
	return have.FourCC == next.FourCC &&
		next.CropW <= have.Width && next.CropH <= have.Height
}

// DecodeFrameAsync implements engine.DecodeEngine.
func (e *Engine) DecodeFrameAsync(bs *bitstream.Bitstream) (surface.Handle, engine.SyncPoint, error) {
	if err := e.fault("decode"); err != nil {
		return nil, 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.dec
	if d == nil {
		return nil, 0, status.NotInitialized
	}

	if bs == nil {
		if len(d.cache) == 0 {
			return nil, 0, status.MoreData
		}
		return e.emitDecodedLocked(d)
	}

	if err := checkRawCodec(bs.Codec()); err != nil {
		return nil, 0, err
	}
	hdr, err := parseUnitHeader(bs.Bytes())
	if err != nil {
		return nil, 0, err
	}
	if bs.Len() < unitHeaderSize+hdr.frameSize() {
		return nil, 0, status.MoreData
	}

	cur := d.params.Frame
	if hdr.FourCC != cur.FourCC || hdr.Width != int(cur.CropW) || hdr.Height != int(cur.CropH) {
		next := surface.NewFrameInfo(hdr.FourCC, hdr.Width, hdr.Height)
		if !fitsPool(d.pool.info, next) {
			return nil, 0, status.IncompatibleVideoParam
		}
		d.params.Frame.CropW = next.CropW
		d.params.Frame.CropH = next.CropH
		logrus.WithFields(logrus.Fields{
			"function": "Engine.DecodeFrameAsync",
			"width":    hdr.Width,
			"height":   hdr.Height,
		}).Warn("Stream resolution changed")
		return nil, 0, status.VideoParamChanged
	}

	h := d.pool.acquire()
	if h == nil {
		return nil, 0, status.MoreSurface
	}

	frame := make([]byte, hdr.frameSize())
	copy(frame, bs.Bytes()[unitHeaderSize:])
	ts := bs.TimeStamp()
	bs.Advance(unitHeaderSize + len(frame))

	d.order++
	info := h.Info()
	info.CropW, info.CropH = uint16(hdr.Width), uint16(hdr.Height)
	data := h.Data()
	data.TimeStamp = ts
	data.FrameOrder = d.order - 1
	snapshot := *info

	work := e.enqueueLocked(func() error {
		defer h.MarkReady()
		return h.Access(func(fd *surface.FrameData) error {
			return surface.UnpackFrame(snapshot, fd, frame)
		})
	})
	d.cache = append(d.cache, decoded{h: h, work: work})

	if len(d.cache) <= e.opts.Delay {
		return nil, 0, status.MoreData
	}
	return e.emitDecodedLocked(d)
}

// emitDecodedLocked hands the oldest cached picture to the caller.
func (e *Engine) emitDecodedLocked(d *decoder) (surface.Handle, engine.SyncPoint, error) {
	out := d.cache[0]
	d.cache = d.cache[1:]
	return out.h, e.publishLocked(out.work), nil
}
