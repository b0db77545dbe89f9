package allocator

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

func newRequest(info surface.FrameInfo, n int) *abi.FrameAllocRequest {
	req := &abi.FrameAllocRequest{
		AllocID:           7,
		Type:              uint16(MemTypeSystemMemory | MemTypeFromDecode | MemTypeExternalFrame),
		NumFrameMin:       uint16(n),
		NumFrameSuggested: uint16(n),
	}
	FrameInfoToABI(info, &req.Info)
	return req
}

func ptr[T any](v *T) uintptr { return uintptr(unsafe.Pointer(v)) }

func TestDescriptorCarriesContext(t *testing.T) {
	a := New()
	defer a.Close()

	raw := (*abi.FrameAllocator)(unsafe.Pointer(a.Descriptor()))
	assert.Equal(t, a.Context(), raw.PThis)
	assert.NotZero(t, a.Context())

	b := New()
	defer b.Close()
	assert.NotEqual(t, a.Context(), b.Context())
}

func TestTrampolinesRecoverHandlerTable(t *testing.T) {
	a, b := New(), New()
	defer a.Close()
	defer b.Close()

	var gotA, gotB int
	a.SetLockHandler(func(mid MemID, data FrameData) error {
		gotA = int(mid)
		return nil
	})
	b.SetLockHandler(func(mid MemID, data FrameData) error {
		gotB = int(mid)
		return nil
	})

	var data abi.FrameData
	assert.Equal(t, status.None, lockTrampoline(a.Context(), 11, ptr(&data)))
	assert.Equal(t, status.None, lockTrampoline(b.Context(), 22, ptr(&data)))
	assert.Equal(t, 11, gotA)
	assert.Equal(t, 22, gotB)
	assert.Equal(t, uintptr(22), data.MemID)
	assert.Equal(t, uint16(2), data.Locked)
}

func TestUnknownContext(t *testing.T) {
	var resp abi.FrameAllocResponse
	var data abi.FrameData
	var hdl uintptr

	const bogus = ^uintptr(0)
	assert.Equal(t, status.InvalidHandle, allocTrampoline(bogus, ptr(&abi.FrameAllocRequest{}), ptr(&resp)))
	assert.Equal(t, status.InvalidHandle, lockTrampoline(bogus, 1, ptr(&data)))
	assert.Equal(t, status.InvalidHandle, unlockTrampoline(bogus, 1, ptr(&data)))
	assert.Equal(t, status.InvalidHandle, getHDLTrampoline(bogus, 1, ptr(&hdl)))
	assert.Equal(t, status.InvalidHandle, freeTrampoline(bogus, ptr(&resp)))
}

func TestClosedBridgeIsUnknown(t *testing.T) {
	a := New()
	a.SetFreeHandler(func(FrameAllocResponse) error { return nil })
	ctx := a.Context()
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	var resp abi.FrameAllocResponse
	assert.Equal(t, status.InvalidHandle, freeTrampoline(ctx, ptr(&resp)))
}

func TestUnregisteredHandlers(t *testing.T) {
	a := New()
	defer a.Close()

	var resp abi.FrameAllocResponse
	var data abi.FrameData
	var hdl uintptr

	assert.Equal(t, status.Unsupported, a.Alloc(&abi.FrameAllocRequest{}, &resp))
	assert.Equal(t, status.Unsupported, a.Lock(1, &data))
	assert.Equal(t, status.Unsupported, a.Unlock(1, &data))
	assert.Equal(t, status.Unsupported, a.GetHDL(1, &hdl))
	assert.Equal(t, status.Unsupported, a.Free(&resp))
}

func TestHandlerErrorMapping(t *testing.T) {
	plain := errors.New("handler exploded")

	tests := []struct {
		name string
		err  error
		want map[string]status.Status
	}{
		{
			name: "success",
			err:  nil,
			want: map[string]status.Status{"alloc": status.None, "lock": status.None, "unlock": status.None, "gethdl": status.None, "free": status.None},
		},
		{
			name: "explicit status",
			err:  status.NotEnoughBuffer,
			want: map[string]status.Status{"alloc": status.NotEnoughBuffer, "lock": status.NotEnoughBuffer, "unlock": status.NotEnoughBuffer, "gethdl": status.NotEnoughBuffer, "free": status.NotEnoughBuffer},
		},
		{
			name: "wrapped status",
			err:  errors.Join(plain, status.DeviceBusy),
			want: map[string]status.Status{"alloc": status.DeviceBusy, "lock": status.DeviceBusy, "unlock": status.DeviceBusy, "gethdl": status.DeviceBusy, "free": status.DeviceBusy},
		},
		{
			name: "plain error",
			err:  plain,
			want: map[string]status.Status{"alloc": status.MemoryAlloc, "lock": status.LockMemory, "unlock": status.LockMemory, "gethdl": status.InvalidHandle, "free": status.Unknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			defer a.Close()
			a.SetAllocHandler(func(FrameAllocRequest, FrameAllocResponse) error { return tt.err })
			a.SetLockHandler(func(MemID, FrameData) error { return tt.err })
			a.SetUnlockHandler(func(MemID, FrameData) error { return tt.err })
			a.SetGetHDLHandler(func(MemID) (uintptr, error) { return 0x42, tt.err })
			a.SetFreeHandler(func(FrameAllocResponse) error { return tt.err })

			var resp abi.FrameAllocResponse
			var data abi.FrameData
			var hdl uintptr

			assert.Equal(t, tt.want["alloc"], allocTrampoline(a.Context(), ptr(&abi.FrameAllocRequest{}), ptr(&resp)))
			assert.Equal(t, tt.want["lock"], lockTrampoline(a.Context(), 1, ptr(&data)))
			assert.Equal(t, tt.want["unlock"], unlockTrampoline(a.Context(), 1, ptr(&data)))
			assert.Equal(t, tt.want["gethdl"], getHDLTrampoline(a.Context(), 1, ptr(&hdl)))
			assert.Equal(t, tt.want["free"], freeTrampoline(a.Context(), ptr(&resp)))

			if tt.err == nil {
				assert.Equal(t, uintptr(0x42), hdl)
			}
		})
	}
}

func TestMemIDTableOwnership(t *testing.T) {
	a := New()
	defer a.Close()

	a.SetAllocHandler(func(req FrameAllocRequest, resp FrameAllocResponse) error {
		ids := make([]MemID, req.NumFrameSuggested())
		for i := range ids {
			ids[i] = MemID(100 + i)
		}
		resp.SetMemIDs(ids)
		return nil
	})
	var freed []MemID
	a.SetFreeHandler(func(resp FrameAllocResponse) error {
		freed = resp.MemIDs()
		return nil
	})

	req := newRequest(surface.NewFrameInfo(surface.FourCCNV12, 64, 64), 3)
	var resp abi.FrameAllocResponse
	require.Equal(t, status.None, allocTrampoline(a.Context(), ptr(req), ptr(&resp)))

	assert.Equal(t, uint32(7), resp.AllocID)
	assert.Equal(t, uint16(3), resp.NumFrameActual)
	assert.Equal(t, []uintptr{100, 101, 102}, abi.MemIDs(resp.MIDs, 3))
	assert.Equal(t, 1, a.OutstandingTables())

	require.Equal(t, status.None, freeTrampoline(a.Context(), ptr(&resp)))
	assert.Equal(t, []MemID{100, 101, 102}, freed)
	assert.Equal(t, 0, a.OutstandingTables())
	assert.Zero(t, resp.MIDs)
}

func TestRequestView(t *testing.T) {
	info := surface.NewFrameInfo(surface.FourCCI420, 176, 144)
	raw := newRequest(info, 4)
	raw.NumFrameMin = 2

	req := FrameAllocRequest{raw: raw}
	assert.Equal(t, uint32(7), req.AllocID())
	assert.True(t, req.Type().Has(MemTypeSystemMemory))
	assert.False(t, req.Type().VideoMemory())
	assert.Equal(t, 2, req.NumFrameMin())
	assert.Equal(t, 4, req.NumFrameSuggested())
	assert.Equal(t, info, req.Info())
}

func TestAllocRejectsShortOrFailedResult(t *testing.T) {
	tests := []struct {
		name    string
		handler AllocHandler
	}{
		{"below minimum", func(req FrameAllocRequest, resp FrameAllocResponse) error {
			resp.SetMemIDs([]MemID{1})
			return nil
		}},
		{"handler error after publishing", func(req FrameAllocRequest, resp FrameAllocResponse) error {
			resp.SetMemIDs([]MemID{1, 2, 3})
			return status.DeviceFailed
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			defer a.Close()
			a.SetAllocHandler(tt.handler)

			req := newRequest(surface.NewFrameInfo(surface.FourCCNV12, 64, 64), 3)
			var resp abi.FrameAllocResponse
			st := allocTrampoline(a.Context(), ptr(req), ptr(&resp))
			assert.NotEqual(t, status.None, st)
			assert.Zero(t, a.OutstandingTables())
			assert.Zero(t, resp.MIDs)
			assert.Zero(t, resp.NumFrameActual)
		})
	}

	a := New()
	defer a.Close()
	a.SetAllocHandler(func(req FrameAllocRequest, resp FrameAllocResponse) error {
		resp.SetMemIDs([]MemID{9})
		return nil
	})
	req := newRequest(surface.NewFrameInfo(surface.FourCCNV12, 64, 64), 2)
	var resp abi.FrameAllocResponse
	assert.Equal(t, status.MemoryAlloc, allocTrampoline(a.Context(), ptr(req), ptr(&resp)))
}
