package libvpl

import (
	"errors"
	"runtime"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/status"
	"github.com/opd-ai/onevpl/surface"
)

func loadOrSkip(t *testing.T) *Library {
	t.Helper()
	lib, err := Load("")
	if err != nil {
		t.Skipf("oneVPL dispatcher not available: %v", err)
	}
	return lib
}

func TestLibraryPaths(t *testing.T) {
	t.Setenv(EnvLibraryPath, "/opt/vpl/libvpl.so.2")
	paths := libraryPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/opt/vpl/libvpl.so.2", paths[0])
	if runtime.GOOS == "linux" {
		assert.Contains(t, paths, "libvpl.so.2")
	}
}

func TestLoadMissingLibrary(t *testing.T) {
	_, err := Load("/nonexistent/libvpl-missing.so")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLibraryNotFound) || errors.Is(err, ErrUnsupportedPlatform))
}

func TestRawSurfaceWithoutInterface(t *testing.T) {
	raw := &abi.FrameSurface{}
	raw.Info.FourCC = uint32(surface.FourCCNV12)
	raw.Info.Width = 16
	raw.Info.Height = 16
	raw.Info.CropW = 16
	raw.Info.CropH = 16
	raw.Data.TimeStamp = 42

	s := newRawSurface(raw)
	assert.Equal(t, surface.FourCCNV12, s.Info().FourCC)
	assert.Equal(t, uint64(42), s.Data().TimeStamp)

	assert.ErrorIs(t, s.Map(surface.MemoryRead), status.InvalidHandle)
	assert.ErrorIs(t, s.Synchronize(time.Millisecond), status.InvalidHandle)

	s.Data().TimeStamp = 7
	assert.ErrorIs(t, s.Release(), status.InvalidHandle)
	assert.Equal(t, uint64(7), raw.Data.TimeStamp)
}

func TestRawSurfaceViewsEngineMemory(t *testing.T) {
	info := surface.NewFrameInfo(surface.FourCCNV12, 16, 16)
	buf := make([]byte, surface.FrameSize(surface.FourCCNV12, int(info.Width), int(info.Height)))
	for i := range buf {
		buf[i] = byte(i)
	}

	raw := &abi.FrameSurface{}
	raw.Info.FourCC = uint32(info.FourCC)
	raw.Info.Width = info.Width
	raw.Info.Height = info.Height
	raw.Info.CropW = info.CropW
	raw.Info.CropH = info.CropH
	raw.Data.SetPitch(uint32(info.Width))
	raw.Data.Y = uintptr(unsafe.Pointer(&buf[0]))
	raw.Data.U = uintptr(unsafe.Pointer(&buf[int(info.Width)*int(info.Height)]))

	s := newRawSurface(raw)
	require.Len(t, s.Data().Y, int(info.Width)*int(info.Height))
	assert.Equal(t, buf[0:4], s.Data().Y[0:4])
	assert.Equal(t, buf[256], s.Data().U[0])
	runtime.KeepAlive(buf)
}

func TestSessionAgainstDispatcher(t *testing.T) {
	lib := loadOrSkip(t)

	n, err := lib.AdaptersNumber()
	if err != nil || n == 0 {
		t.Skipf("no accelerator adapters: %v", err)
	}

	s, err := lib.NewSession(0)
	if err != nil {
		t.Skipf("no implementation available: %v", err)
	}

	v, err := s.QueryVersion()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.Major, uint16(2))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.QueryVersion()
	assert.ErrorIs(t, err, ErrSessionClosed)
}
