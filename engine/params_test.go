package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opd-ai/onevpl/bitstream"
	"github.com/opd-ai/onevpl/limits"
	"github.com/opd-ai/onevpl/surface"
)

func TestSuggestedBufferSize(t *testing.T) {
	tests := []struct {
		name   string
		params VideoParams
		want   int
	}{
		{"explicit", VideoParams{BufferSizeInKB: 512}, 512 * 1024},
		{"raw frame", VideoParams{Frame: surface.NewFrameInfo(surface.FourCCI420, 16, 16)}, 16*16*3/2 + 8},
		{"unknown format", VideoParams{Frame: surface.FrameInfo{Width: 16, Height: 16}}, limits.DefaultBitstreamBuffer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.SuggestedBufferSize())
		})
	}
}

func TestValidate(t *testing.T) {
	good := VideoParams{Codec: bitstream.CodecRaw, Frame: surface.NewFrameInfo(surface.FourCCNV12, 320, 240)}
	assert.NoError(t, good.Validate())

	empty := VideoParams{}
	assert.ErrorIs(t, empty.Validate(), limits.ErrFrameEmpty)

	crop := good
	crop.Frame.CropW = crop.Frame.Width + 1
	assert.Error(t, crop.Validate())

	neg := good
	neg.AsyncDepth = -1
	assert.Error(t, neg.Validate())
}

func TestVPPParamsFrom(t *testing.T) {
	p := VideoParams{
		Frame:      surface.NewFrameInfo(surface.FourCCNV12, 64, 64),
		IOPattern:  IOPatternSystemMemory,
		AsyncDepth: 3,
	}
	vpp := VPPParamsFrom(p, surface.FourCCBGRA)

	assert.Equal(t, surface.FourCCNV12, vpp.In.FourCC)
	assert.Equal(t, surface.FourCCBGRA, vpp.Out.FourCC)
	assert.Equal(t, uint16(3), vpp.Out.ChromaFormat)
	assert.Equal(t, p.Frame.CropW, vpp.Out.CropW)
	assert.Equal(t, 3, vpp.AsyncDepth)
	assert.False(t, vpp.IOPattern.VideoMemory())
	assert.True(t, IOPatternVideoMemory.VideoMemory())
}
