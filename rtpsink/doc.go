// Package rtpsink packetizes encoder output into RTP.
//
// A Sink drains one access unit at a time out of a bitstream.Bitstream,
// splits it with the payloader matching the stream codec and hands each
// packet to an io.Writer (one Write per datagram) or to a callback:
//
//	sink, err := rtpsink.New(bitstream.CodecAVC, rtpsink.Config{Writer: conn})
//	...
//	for {
//	    n, err := enc.Encode(ctx, nil, frame, bs)
//	    ...
//	    if _, err := sink.Drain(bs, 90000/30); err != nil {
//	        return err
//	    }
//	}
//
// Supported codecs are AVC (RFC 6184), VP8 (RFC 7741), VP9 and AV1.
package rtpsink
