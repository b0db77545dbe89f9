package allocator

import (
	"unsafe"

	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/status"
)

// The trampolines are the fixed entry points behind the descriptor's
// function pointers. Each recovers the bridge from pthis and forwards to the
// matching dispatch method; an unknown pthis reports InvalidHandle.

func allocTrampoline(pthis, req, resp uintptr) status.Status {
	a := lookup(pthis)
	if a == nil {
		return status.InvalidHandle
	}
	return a.Alloc((*abi.FrameAllocRequest)(unsafe.Pointer(req)), (*abi.FrameAllocResponse)(unsafe.Pointer(resp)))
}

func lockTrampoline(pthis, mid, data uintptr) status.Status {
	a := lookup(pthis)
	if a == nil {
		return status.InvalidHandle
	}
	return a.Lock(MemID(mid), (*abi.FrameData)(unsafe.Pointer(data)))
}

func unlockTrampoline(pthis, mid, data uintptr) status.Status {
	a := lookup(pthis)
	if a == nil {
		return status.InvalidHandle
	}
	return a.Unlock(MemID(mid), (*abi.FrameData)(unsafe.Pointer(data)))
}

func getHDLTrampoline(pthis, mid, handle uintptr) status.Status {
	a := lookup(pthis)
	if a == nil {
		return status.InvalidHandle
	}
	return a.GetHDL(MemID(mid), (*uintptr)(unsafe.Pointer(handle)))
}

func freeTrampoline(pthis, resp uintptr) status.Status {
	a := lookup(pthis)
	if a == nil {
		return status.InvalidHandle
	}
	return a.Free((*abi.FrameAllocResponse)(unsafe.Pointer(resp)))
}

// statusWord widens a status to the register the C caller reads as int32.
func statusWord(st status.Status) uintptr {
	return uintptr(uint32(st.Code()))
}
