// Package allocator bridges the codec engine's frame allocation callbacks
// to Go.
//
// The engine asks the application for frame memory through five callbacks:
// alloc, lock, unlock, get-handle and free. A FrameAllocator holds one Go
// handler per callback and exposes a C-layout descriptor whose function
// pointers are fixed trampolines. Each trampoline recovers the bridge from
// the context value the engine passes back, builds typed views over the raw
// request, response and frame data structures, and maps the handler result
// onto the engine's integer status convention:
//
//	nil                 -> success
//	status.Status       -> that code
//	any other error     -> MemoryAlloc (alloc), LockMemory (lock, unlock),
//	                       InvalidHandle (get-handle), Unknown (free)
//	no handler          -> Unsupported
//	unknown context     -> InvalidHandle
//
// # Memory identifier tables
//
// Handlers publish frames with FrameAllocResponse.SetMemIDs. The table is
// owned by the bridge while the engine holds its address and is reclaimed
// when the engine calls free for that response, or when the bridge closes.
//
// # System memory
//
// Arena is a complete handler set backed by memory mapped outside the Go
// heap:
//
//	bridge := allocator.New()
//	defer bridge.Close()
//	arena := allocator.NewArena()
//	defer arena.Close()
//	arena.Install(bridge)
//	session.SetAllocator(bridge)
//
// Handlers run on engine threads and must be safe for concurrent use.
package allocator
