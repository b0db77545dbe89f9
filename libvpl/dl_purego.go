//go:build darwin || (linux && (amd64 || arm64))

package libvpl

import (
	"github.com/ebitengine/purego"

	"github.com/opd-ai/onevpl/status"
)

func dlopen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func dlclose(handle uintptr) {
	_ = purego.Dlclose(handle)
}

func bindSymbol(handle uintptr, name string, fptr any) error {
	addr, err := purego.Dlsym(handle, name)
	if err != nil {
		return err
	}
	purego.RegisterFunc(fptr, addr)
	return nil
}

// callStatus calls a C function returning mfxStatus.
func callStatus(fn uintptr, args ...uintptr) status.Status {
	if fn == 0 {
		return status.NotImplemented
	}
	r1, _, _ := purego.SyscallN(fn, args...)
	return status.FromCode(int32(r1))
}
