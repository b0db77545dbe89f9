package bitstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// ErrFull is returned by Write when the buffer could not take every byte.
// It is backpressure rather than a failure: drain the buffer through the
// engine (or Read) and write the remainder afterwards.
var ErrFull = errors.New("bitstream buffer full")

// TimeStampUnknown marks a unit without a presentation time.
const TimeStampUnknown = ^uint64(0)

// Bitstream is a compacting buffer of compressed bytes shared between the
// application and the engine.
//
// The valid bytes live in buf[offset : offset+length]. The engine consumes
// from the front (Advance) and appends encoded output at the back; the
// application does the same through Read and Write. Whenever data has to be
// appended and the valid region does not start at the front, the region is
// moved down first, so offset+length <= cap(buf) always holds.
//
// Bitstream does no internal locking. It has a single writer and a single
// reader; callers sharing it across goroutines must serialize access.
type Bitstream struct {
	buf    []byte
	offset int
	length int
	codec  Codec

	timeStamp       uint64
	decodeTimeStamp int64
	frameType       FrameType
	picStruct       PicStruct
	flags           DataFlags
}

// New creates a bitstream over caller-owned storage. The capacity is
// len(buf) and never changes.
func New(buf []byte, codec Codec) *Bitstream {
	logrus.WithFields(logrus.Fields{
		"function": "bitstream.New",
		"capacity": len(buf),
		"codec":    codec.String(),
	}).Debug("Creating bitstream")

	return &Bitstream{
		buf:       buf,
		codec:     codec,
		timeStamp: TimeStampUnknown,
	}
}

// Codec returns the codec tag the bitstream was created with.
func (b *Bitstream) Codec() Codec { return b.codec }

// SetCodec changes the codec tag.
func (b *Bitstream) SetCodec(c Codec) { b.codec = c }

// Len returns the number of valid bytes.
func (b *Bitstream) Len() int { return b.length }

// Cap returns the capacity of the backing storage.
func (b *Bitstream) Cap() int { return len(b.buf) }

// Free returns how many bytes can still be written.
func (b *Bitstream) Free() int { return len(b.buf) - b.length }

// Offset returns the read cursor into the backing storage.
func (b *Bitstream) Offset() int { return b.offset }

// SetLen declares that the first n bytes of the backing storage are valid.
// It is used when the storage was filled before the bitstream was created.
// SetLen panics if n is negative or exceeds the capacity.
func (b *Bitstream) SetLen(n int) {
	if n < 0 || n > len(b.buf) {
		panic(fmt.Sprintf("bitstream: SetLen(%d) outside capacity %d", n, len(b.buf)))
	}
	b.offset = 0
	b.length = n
}

// Reset discards all buffered data and metadata.
func (b *Bitstream) Reset() {
	b.offset = 0
	b.length = 0
	b.timeStamp = TimeStampUnknown
	b.decodeTimeStamp = 0
	b.frameType = FrameTypeUnknown
	b.picStruct = PicStructUnknown
	b.flags = 0
}

// Bytes returns the valid region. The slice aliases the backing storage and
// is only valid until the next mutating call.
func (b *Bitstream) Bytes() []byte {
	return b.buf[b.offset : b.offset+b.length]
}

// Advance marks n bytes at the front of the valid region as consumed.
// Advance panics if n exceeds Len.
func (b *Bitstream) Advance(n int) {
	if n < 0 || n > b.length {
		panic(fmt.Sprintf("bitstream: Advance(%d) beyond %d valid bytes", n, b.length))
	}
	b.offset += n
	b.length -= n
	if b.length == 0 {
		b.offset = 0
	}
}

// compact moves the valid region to the front of the backing storage.
func (b *Bitstream) compact() {
	if b.offset == 0 {
		return
	}
	copy(b.buf, b.buf[b.offset:b.offset+b.length])
	b.offset = 0
}

// Write appends as much of p as fits, compacting first. It returns the number
// of bytes taken; when that is less than len(p) the error is ErrFull and the
// existing content is unchanged apart from compaction.
func (b *Bitstream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.length >= len(b.buf) {
		return 0, ErrFull
	}

	b.compact()

	n := copy(b.buf[b.length:], p)
	b.length += n

	if n < len(p) {
		return n, ErrFull
	}
	return n, nil
}

// Read copies up to len(p) bytes from the front of the valid region into p,
// then shifts the unread remainder to the front. It returns io.EOF when the
// bitstream is empty.
func (b *Bitstream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.length == 0 {
		return 0, io.EOF
	}

	n := copy(p, b.buf[b.offset:b.offset+b.length])
	b.offset += n
	b.length -= n
	b.compact()

	return n, nil
}

// ReadFrom fills the free space from r until the buffer is full or r is
// exhausted. Reaching the end of r is not an error; a zero count with a nil
// error means r had nothing left.
func (b *Bitstream) ReadFrom(r io.Reader) (int64, error) {
	b.compact()

	var total int64
	for b.length < len(b.buf) {
		n, err := r.Read(b.buf[b.length:])
		b.length += n
		total += int64(n)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// WriteTo drains every buffered byte into w. Bytes w did not accept stay
// buffered.
func (b *Bitstream) WriteTo(w io.Writer) (int64, error) {
	if b.length == 0 {
		return 0, nil
	}
	n, err := w.Write(b.buf[b.offset : b.offset+b.length])
	b.Advance(n)
	if err == nil && b.length > 0 {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// TimeStamp returns the presentation time stamp in 90 kHz units, or
// TimeStampUnknown.
func (b *Bitstream) TimeStamp() uint64 { return b.timeStamp }

// SetTimeStamp sets the presentation time stamp of the next unit.
func (b *Bitstream) SetTimeStamp(ts uint64) { b.timeStamp = ts }

// DecodeTimeStamp returns the decode time stamp of the last encoded unit.
func (b *Bitstream) DecodeTimeStamp() int64 { return b.decodeTimeStamp }

// SetDecodeTimeStamp sets the decode time stamp.
func (b *Bitstream) SetDecodeTimeStamp(dts int64) { b.decodeTimeStamp = dts }

// FrameType returns the frame type of the last encoded unit.
func (b *Bitstream) FrameType() FrameType { return b.frameType }

// SetFrameType records the frame type of the buffered unit.
func (b *Bitstream) SetFrameType(t FrameType) { b.frameType = t }

// PicStruct returns the picture structure of the last encoded unit.
func (b *Bitstream) PicStruct() PicStruct { return b.picStruct }

// SetPicStruct records the picture structure of the buffered unit.
func (b *Bitstream) SetPicStruct(p PicStruct) { b.picStruct = p }

// DataFlags returns the data flags.
func (b *Bitstream) DataFlags() DataFlags { return b.flags }

// SetDataFlags sets the data flags.
func (b *Bitstream) SetDataFlags(f DataFlags) { b.flags = f }
