package rtpsink

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/onevpl/bitstream"
)

type datagramWriter struct {
	packets [][]byte
	err     error
}

func (w *datagramWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.packets = append(w.packets, append([]byte(nil), p...))
	return len(p), nil
}

func unitStream(t *testing.T, codec bitstream.Codec, unit []byte) *bitstream.Bitstream {
	t.Helper()
	bs := bitstream.New(make([]byte, len(unit)+64), codec)
	_, err := bs.Write(unit)
	require.NoError(t, err)
	return bs
}

func TestNewErrors(t *testing.T) {
	_, err := New(bitstream.CodecMPEG2, Config{Writer: &datagramWriter{}})
	assert.ErrorIs(t, err, ErrUnsupportedCodec)

	_, err = New(bitstream.CodecAVC, Config{})
	assert.ErrorIs(t, err, ErrNoOutput)

	s, err := New(bitstream.CodecVP8, Config{Writer: &datagramWriter{}})
	require.NoError(t, err)
	assert.NotZero(t, s.SSRC())
	assert.Equal(t, DefaultMTU, s.cfg.MTU)
	assert.Equal(t, VideoClockRate, s.cfg.ClockRate)
}

func TestDrainAVCFragmentsAndReassembles(t *testing.T) {
	nal := make([]byte, 3000)
	nal[0] = 0x65
	for i := 1; i < len(nal); i++ {
		nal[i] = byte(i)
	}
	unit := append([]byte{0, 0, 0, 1}, nal...)

	var got []*rtp.Packet
	s, err := New(bitstream.CodecAVC, Config{
		SSRC: 0x1234,
		OnPacket: func(p *rtp.Packet) error {
			got = append(got, p)
			return nil
		},
	})
	require.NoError(t, err)

	bs := unitStream(t, bitstream.CodecAVC, unit)
	n, err := s.Drain(bs, 3000)
	require.NoError(t, err)
	require.Greater(t, n, 1)
	require.Len(t, got, n)
	assert.Zero(t, bs.Len())

	var depacketizer codecs.H264Packet
	var out []byte
	for i, p := range got {
		assert.Equal(t, uint32(0x1234), p.SSRC)
		assert.Equal(t, DefaultPayloadType, p.PayloadType)
		assert.Equal(t, i == len(got)-1, p.Marker)
		assert.LessOrEqual(t, p.MarshalSize(), int(DefaultMTU))

		frag, err := depacketizer.Unmarshal(p.Payload)
		require.NoError(t, err)
		out = append(out, frag...)
	}
	assert.Equal(t, unit, out)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Units)
	assert.Equal(t, uint64(n), st.Packets)
}

func TestDrainVP8Writer(t *testing.T) {
	w := &datagramWriter{}
	s, err := New(bitstream.CodecVP8, Config{Writer: w, PayloadType: 100})
	require.NoError(t, err)

	frame := bytes.Repeat([]byte{0xab}, 500)
	for i := 0; i < 2; i++ {
		n, err := s.Drain(unitStream(t, bitstream.CodecVP8, frame), 3000)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	require.Len(t, w.packets, 2)

	var first, second rtp.Packet
	require.NoError(t, first.Unmarshal(w.packets[0]))
	require.NoError(t, second.Unmarshal(w.packets[1]))
	assert.Equal(t, uint8(100), first.PayloadType)
	assert.Equal(t, first.SSRC, second.SSRC)
	assert.Equal(t, first.SequenceNumber+1, second.SequenceNumber)
	assert.Equal(t, uint32(3000), second.Timestamp-first.Timestamp)
	assert.True(t, first.Marker)

	var vp8 codecs.VP8Packet
	payload, err := vp8.Unmarshal(first.Payload)
	require.NoError(t, err)
	assert.Equal(t, frame, payload)
	assert.Equal(t, uint64(len(w.packets[0])+len(w.packets[1])), s.Stats().Bytes)
}

func TestDrainEdgeCases(t *testing.T) {
	w := &datagramWriter{}
	s, err := New(bitstream.CodecVP8, Config{Writer: w})
	require.NoError(t, err)

	n, err := s.Drain(nil, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Drain(bitstream.New(make([]byte, 16), bitstream.CodecVP8), 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Drain(unitStream(t, bitstream.CodecVP9, []byte{1, 2, 3}), 0)
	assert.ErrorIs(t, err, ErrCodecMismatch)

	w.err = errors.New("network down")
	bs := unitStream(t, bitstream.CodecVP8, []byte{0x10, 0x02, 0x9d, 0x01, 0x2a})
	_, err = s.Drain(bs, 0)
	require.Error(t, err)
	assert.Equal(t, 5, bs.Len())
	assert.Zero(t, s.Stats().Units)
}
