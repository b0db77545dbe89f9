package rtpsink

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/bitstream"
)

const (
	// DefaultMTU leaves room for IP and UDP headers on a 1280-byte path.
	DefaultMTU uint16 = 1200
	// DefaultPayloadType is the first dynamic payload type.
	DefaultPayloadType uint8 = 96
	// VideoClockRate is the RTP clock of every video payload format.
	VideoClockRate uint32 = 90000
)

var (
	// ErrUnsupportedCodec is returned by New for codecs without a payloader.
	ErrUnsupportedCodec = errors.New("rtpsink: unsupported codec")
	// ErrCodecMismatch is returned by Drain when the bitstream carries a
	// different codec than the sink was built for.
	ErrCodecMismatch = errors.New("rtpsink: codec mismatch")
	// ErrNoOutput is returned by New when neither Writer nor OnPacket is set.
	ErrNoOutput = errors.New("rtpsink: no output")
)

// Config controls packetization. Zero values select the defaults.
type Config struct {
	MTU         uint16
	PayloadType uint8
	// SSRC is drawn at random when zero.
	SSRC      uint32
	ClockRate uint32

	// Writer receives each marshaled packet in its own Write call.
	Writer io.Writer
	// OnPacket, when set, receives packets instead of Writer.
	OnPacket func(*rtp.Packet) error
}

// Stats counts what a sink has emitted.
type Stats struct {
	Units   uint64
	Packets uint64
	Bytes   uint64
}

// Sink turns access units into RTP packets. It is safe for concurrent use.
type Sink struct {
	codec bitstream.Codec
	cfg   Config

	mu         sync.Mutex
	packetizer rtp.Packetizer
	stats      Stats
}

func payloaderFor(codec bitstream.Codec) (rtp.Payloader, error) {
	switch codec {
	case bitstream.CodecAVC:
		return &codecs.H264Payloader{}, nil
	case bitstream.CodecVP8:
		return &codecs.VP8Payloader{EnablePictureID: true}, nil
	case bitstream.CodecVP9:
		return &codecs.VP9Payloader{FlexibleMode: true}, nil
	case bitstream.CodecAV1:
		return &codecs.AV1Payloader{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
}

func randomSSRC() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("rtpsink: generate SSRC: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// New returns a sink for codec.
func New(codec bitstream.Codec, cfg Config) (*Sink, error) {
	payloader, err := payloaderFor(codec)
	if err != nil {
		return nil, err
	}
	if cfg.Writer == nil && cfg.OnPacket == nil {
		return nil, ErrNoOutput
	}
	if cfg.MTU == 0 {
		cfg.MTU = DefaultMTU
	}
	if cfg.PayloadType == 0 {
		cfg.PayloadType = DefaultPayloadType
	}
	if cfg.ClockRate == 0 {
		cfg.ClockRate = VideoClockRate
	}
	if cfg.SSRC == 0 {
		if cfg.SSRC, err = randomSSRC(); err != nil {
			return nil, err
		}
	}

	s := &Sink{
		codec:      codec,
		cfg:        cfg,
		packetizer: rtp.NewPacketizer(cfg.MTU, cfg.PayloadType, cfg.SSRC, payloader, rtp.NewRandomSequencer(), cfg.ClockRate),
	}

	logrus.WithFields(logrus.Fields{
		"function":     "rtpsink.New",
		"codec":        codec.String(),
		"ssrc":         cfg.SSRC,
		"mtu":          cfg.MTU,
		"payload_type": cfg.PayloadType,
	}).Info("Created RTP sink")

	return s, nil
}

// Codec returns the codec the sink packetizes.
func (s *Sink) Codec() bitstream.Codec { return s.codec }

// SSRC returns the synchronization source of emitted packets.
func (s *Sink) SSRC() uint32 { return s.cfg.SSRC }

// Stats returns a snapshot of the emitted counts.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Drain packetizes every valid byte of bs as one access unit, emits the
// packets and consumes the bytes. samples advances the RTP time stamp for
// the next unit. It returns the number of packets emitted; an empty
// bitstream emits nothing.
//
// On an output error the bitstream is left untouched.
func (s *Sink) Drain(bs *bitstream.Bitstream, samples uint32) (int, error) {
	if bs == nil || bs.Len() == 0 {
		return 0, nil
	}
	if c := bs.Codec(); c != 0 && c != s.codec {
		return 0, fmt.Errorf("%w: sink %s, bitstream %s", ErrCodecMismatch, s.codec, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unit := bs.Bytes()
	packets := s.packetizer.Packetize(unit, samples)

	var sent uint64
	for _, p := range packets {
		n, err := s.emit(p)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Sink.Drain",
				"sequence": p.SequenceNumber,
				"error":    err.Error(),
			}).Error("Failed to emit RTP packet")
			return 0, err
		}
		sent += uint64(n)
	}

	bs.Advance(len(unit))
	s.stats.Units++
	s.stats.Packets += uint64(len(packets))
	s.stats.Bytes += sent

	logrus.WithFields(logrus.Fields{
		"function":  "Sink.Drain",
		"unit_size": len(unit),
		"packets":   len(packets),
	}).Debug("Packetized access unit")

	return len(packets), nil
}

func (s *Sink) emit(p *rtp.Packet) (int, error) {
	if s.cfg.OnPacket != nil {
		return p.MarshalSize(), s.cfg.OnPacket(p)
	}
	raw, err := p.Marshal()
	if err != nil {
		return 0, fmt.Errorf("rtpsink: marshal packet: %w", err)
	}
	if _, err := s.cfg.Writer.Write(raw); err != nil {
		return 0, fmt.Errorf("rtpsink: write packet: %w", err)
	}
	return len(raw), nil
}
