// Package bitstream provides the compressed-data buffer exchanged with the
// codec engine.
//
// A Bitstream wraps caller-owned storage of fixed capacity. The application
// appends compressed bytes (Write, ReadFrom) before every decode call, and
// drains encoded output (Read) after every encode call. The engine consumes
// from the front through Bytes and Advance.
//
// # Compaction
//
// The valid bytes occupy a window [Offset, Offset+Len) of the storage. Before
// new data is appended the window is moved to the front so that the whole
// free space is contiguous:
//
//	bs := bitstream.New(make([]byte, 16), bitstream.CodecAVC)
//	bs.Write(data[:10])   // Len 10
//	bs.Advance(8)         // engine consumed 8 bytes; Offset 8, Len 2
//	bs.Write(data[10:24]) // compacts, then appends; Len 16
//
// # Backpressure
//
// Write never grows the storage. When it cannot take every byte it returns
// the number written together with ErrFull. ErrFull is flow control, not a
// failure: hand the buffered data to the engine and retry the remainder.
//
//	for len(pending) > 0 {
//		n, err := bs.Write(pending)
//		pending = pending[n:]
//		if errors.Is(err, bitstream.ErrFull) {
//			decodeOnce(bs)
//		}
//	}
//
// # Concurrency
//
// A Bitstream has no internal locking. It assumes one writer and one reader
// whose calls are serialized by the caller, which is how the decode and
// encode loops use it.
package bitstream
