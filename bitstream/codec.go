package bitstream

import "fmt"

// Codec identifies the compressed format carried by a Bitstream. Values are
// the engine's four-character codes.
type Codec uint32

func makeFourCC(a, b, c, d byte) Codec {
	return Codec(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// Supported codecs.
var (
	CodecAVC   = makeFourCC('A', 'V', 'C', ' ')
	CodecHEVC  = makeFourCC('H', 'E', 'V', 'C')
	CodecMPEG2 = makeFourCC('M', 'P', 'G', '2')
	CodecVC1   = makeFourCC('V', 'C', '1', ' ')
	CodecVP8   = makeFourCC('V', 'P', '8', ' ')
	CodecVP9   = makeFourCC('V', 'P', '9', ' ')
	CodecAV1   = makeFourCC('A', 'V', '1', ' ')
	CodecJPEG  = makeFourCC('J', 'P', 'E', 'G')
	// CodecRaw carries uncompressed frames; only the software engine implements it.
	CodecRaw = makeFourCC('R', 'A', 'W', ' ')
)

// String returns the four-character code with trailing spaces removed.
func (c Codec) String() string {
	b := []byte{byte(c), byte(c >> 8), byte(c >> 16), byte(c >> 24)}
	for i, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("codec(0x%08x)", uint32(c))
		}
		b[i] = ch
	}
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// FrameType flags describe the picture carried by an encoded unit.
type FrameType uint16

const (
	FrameTypeUnknown FrameType = 0
	FrameTypeI       FrameType = 0x0001
	FrameTypeP       FrameType = 0x0002
	FrameTypeB       FrameType = 0x0004
	FrameTypeS       FrameType = 0x0008
	FrameTypeREF     FrameType = 0x0040
	FrameTypeIDR     FrameType = 0x0080
)

// PicStruct describes how a picture is laid out in time.
type PicStruct uint16

const (
	PicStructUnknown     PicStruct = 0x00
	PicStructProgressive PicStruct = 0x01
	PicStructFieldTFF    PicStruct = 0x02
	PicStructFieldBFF    PicStruct = 0x04
)

// DataFlags carry hints about how the engine should treat the buffered data.
type DataFlags uint16

const (
	// DataFlagEndOfStream marks the final data of the stream.
	DataFlagEndOfStream DataFlags = 0x0001
	// DataFlagCompleteFrame tells the decoder the buffer holds exactly one
	// complete frame or field.
	DataFlagCompleteFrame DataFlags = 0x0002
)
