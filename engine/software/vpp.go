package software

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/allocator"
	"github.com/opd-ai/onevpl/engine"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

type processor struct {
	params engine.VPPParams
	in     *pool
	out    *pool
	order  uint32
}

func (p *processor) close() error {
	return errors.Join(p.in.close(), p.out.close())
}

// checkConversion reports whether frames of in can be converted to out.
func checkConversion(in, out surface.FrameInfo) error {
	if !in.FourCC.Supported() || !out.FourCC.Supported() {
		return fmt.Errorf("convert %s to %s: %w", in.FourCC, out.FourCC, status.Unsupported)
	}
	if in.CropW != out.CropW || in.CropH != out.CropH {
		return fmt.Errorf("scale %dx%d to %dx%d: %w",
			in.CropW, in.CropH, out.CropW, out.CropH, status.InvalidVideoParam)
	}
	if in.FourCC.Packed() || out.FourCC.Packed() {
		if in.FourCC != out.FourCC {
			return fmt.Errorf("convert %s to %s: %w", in.FourCC, out.FourCC, status.Unsupported)
		}
	}
	return nil
}

// convertFrame rewrites a tightly packed frame from one 4:2:0 plane layout
// to another. Packed formats are returned unchanged.
func convertFrame(from, to surface.FourCC, width, height int, frame []byte) []byte {
	if from == to || from.Packed() {
		return frame
	}
	luma := width * height
	cw, ch := surface.ChromaSize(width, height)
	chroma := cw * ch

	// split into tight U and V planes
	u := make([]byte, chroma)
	v := make([]byte, chroma)
	switch from {
	case surface.FourCCIYUV:
		copy(u, frame[luma:])
		copy(v, frame[luma+chroma:])
	case surface.FourCCYV12:
		copy(v, frame[luma:])
		copy(u, frame[luma+chroma:])
	case surface.FourCCNV12:
		uv := frame[luma:]
		for i := 0; i < chroma; i++ {
			u[i], v[i] = uv[2*i], uv[2*i+1]
		}
	}

	dst := make([]byte, len(frame))
	copy(dst, frame[:luma])
	switch to {
	case surface.FourCCIYUV:
		copy(dst[luma:], u)
		copy(dst[luma+chroma:], v)
	case surface.FourCCYV12:
		copy(dst[luma:], v)
		copy(dst[luma+chroma:], u)
	case surface.FourCCNV12:
		uv := dst[luma:]
		for i := 0; i < chroma; i++ {
			uv[2*i], uv[2*i+1] = u[i], v[i]
		}
	}
	return dst
}

// VPPInit implements engine.VPPEngine.
func (e *Engine) VPPInit(params engine.VPPParams) error {
	if err := checkConversion(params.In, params.Out); err != nil {
		return err
	}
	for _, f := range []surface.FrameInfo{params.In, params.Out} {
		v := engine.VideoParams{Frame: f, AsyncDepth: params.AsyncDepth}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", status.InvalidVideoParam, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return status.NotInitialized
	}
	if e.vpp != nil {
		return status.UndefinedBehavior
	}

	var inBridge *allocator.FrameAllocator
	if params.IOPattern&engine.IOPatternInVideoMemory != 0 {
		inBridge = e.bridge
	}
	in, err := newPool(params.In, e.opts.PoolSize, inBridge,
		allocator.MemTypeVideoMemoryProcessorTarget|allocator.MemTypeFromVPPIn)
	if err != nil {
		return err
	}
	out, err := e.newOutputPool(params.Out, params.IOPattern,
		allocator.MemTypeVideoMemoryProcessorTarget|allocator.MemTypeFromVPPOut)
	if err != nil {
		_ = in.close()
		return err
	}
	e.vpp = &processor{params: params, in: in, out: out}

	logrus.WithFields(logrus.Fields{
		"function": "Engine.VPPInit",
		"in":       params.In.FourCC.String(),
		"out":      params.Out.FourCC.String(),
		"width":    params.Out.CropW,
		"height":   params.Out.CropH,
	}).Info("Initialized video processor")
	return nil
}

// VPPReset implements engine.VPPEngine.
func (e *Engine) VPPReset(params engine.VPPParams) error {
	if err := checkConversion(params.In, params.Out); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.vpp
	if p == nil {
		return status.NotInitialized
	}
	if !fitsPool(p.in.info, params.In) || !fitsPool(p.out.info, params.Out) {
		return status.IncompatibleVideoParam
	}
	p.params = params
	return nil
}

// VPPClose implements engine.VPPEngine.
func (e *Engine) VPPClose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vpp == nil {
		return status.NotInitialized
	}
	err := e.vpp.close()
	e.vpp = nil
	return err
}

// VPPGetParams implements engine.VPPEngine.
func (e *Engine) VPPGetParams() (engine.VPPParams, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vpp == nil {
		return engine.VPPParams{}, status.NotInitialized
	}
	return e.vpp.params, nil
}

// GetSurfaceForVPPIn implements engine.VPPEngine.
func (e *Engine) GetSurfaceForVPPIn() (surface.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vpp == nil {
		return nil, status.NotInitialized
	}
	h := e.vpp.in.acquire()
	if h == nil {
		return nil, status.MoreSurface
	}
	h.MarkReady()
	return h, nil
}

// VPPProcessFrameAsync implements engine.VPPEngine. The processor keeps no
// frames, so a nil in always reports MoreData.
func (e *Engine) VPPProcessFrameAsync(in surface.Handle) (surface.Handle, engine.SyncPoint, error) {
	if err := e.fault("vpp"); err != nil {
		return nil, 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.vpp
	if p == nil {
		return nil, 0, status.NotInitialized
	}
	if in == nil {
		return nil, 0, status.MoreData
	}

	info := *in.Info()
	if info.FourCC != p.params.In.FourCC {
		return nil, 0, fmt.Errorf("process %s input as %s: %w",
			info.FourCC, p.params.In.FourCC, status.IncompatibleVideoParam)
	}
	if info.CropW > p.out.info.Width || info.CropH > p.out.info.Height {
		return nil, 0, status.IncompatibleVideoParam
	}

	h := p.out.acquire()
	if h == nil {
		return nil, 0, status.MoreSurface
	}
	outInfo := h.Info()
	outInfo.CropW, outInfo.CropH = info.CropW, info.CropH
	data := h.Data()
	data.TimeStamp = in.Data().TimeStamp
	data.FrameOrder = p.order
	p.order++
	snapshot := *outInfo

	var frame []byte
	read := e.captureLocked(in, info, &frame)
	work := e.enqueueLocked(func() error {
		defer h.MarkReady()
		<-read.done
		if read.err != nil {
			return read.err
		}
		converted := convertFrame(info.FourCC, snapshot.FourCC, int(info.CropW), int(info.CropH), frame)
		return h.Access(func(fd *surface.FrameData) error {
			return surface.UnpackFrame(snapshot, fd, converted)
		})
	})

	logrus.WithFields(logrus.Fields{
		"function": "Engine.VPPProcessFrameAsync",
		"fourcc":   snapshot.FourCC.String(),
		"order":    data.FrameOrder,
	}).Debug("Queued frame conversion")

	return h, e.publishLocked(work), nil
}
