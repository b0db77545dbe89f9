package allocator

// MemID identifies one frame allocated through the bridge. Its meaning is
// private to the handler set that produced it.
type MemID uintptr

// MemType flags describe the memory a request asks for and who asks.
type MemType uint16

const (
	MemTypeInternalFrame              MemType = 0x0001
	MemTypeExternalFrame              MemType = 0x0002
	MemTypeExportFrame                MemType = 0x0008
	MemTypeVideoMemoryDecoderTarget   MemType = 0x0010
	MemTypeVideoMemoryProcessorTarget MemType = 0x0020
	MemTypeSystemMemory               MemType = 0x0040
	MemTypeFromEncode                 MemType = 0x0100
	MemTypeFromDecode                 MemType = 0x0200
	MemTypeFromVPPIn                  MemType = 0x0400
	MemTypeFromVPPOut                 MemType = 0x0800
	MemTypeVideoMemoryEncoderTarget   MemType = 0x1000
)

// Has reports whether every bit of flag is set in t.
func (t MemType) Has(flag MemType) bool { return t&flag == flag }

// VideoMemory reports whether t asks for device memory of any kind.
func (t MemType) VideoMemory() bool {
	return t&(MemTypeVideoMemoryDecoderTarget|MemTypeVideoMemoryProcessorTarget|MemTypeVideoMemoryEncoderTarget) != 0
}
