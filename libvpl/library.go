package libvpl

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/onevpl/internal/abi"
	"github.com/opd-ai/onevpl/status"
)

// EnvLibraryPath overrides the library search when set.
const EnvLibraryPath = "ONEVPL_LIB_PATH"

// Library is a loaded dispatcher. Its functions are safe for concurrent use.
type Library struct {
	path   string
	handle uintptr

	mfxLoad                func() uintptr
	mfxUnload              func(loader uintptr)
	mfxCreateSession       func(loader uintptr, index uint32, session *uintptr) int32
	mfxClose               func(session uintptr) int32
	mfxQueryVersion        func(session uintptr, version *abi.Version) int32
	mfxQueryIMPL           func(session uintptr, impl *int32) int32
	mfxQueryAdaptersNumber func(num *uint32) int32
	setFrameAllocator      func(session uintptr, allocator uintptr) int32
	syncOperation          func(session uintptr, syncp uintptr, wait uint32) int32
	getSurfaceForDecode    func(session uintptr, surface *uintptr) int32
	getSurfaceForEncode    func(session uintptr, surface *uintptr) int32
	getSurfaceForVPPIn     func(session uintptr, surface *uintptr) int32
	getSurfaceForVPPOut    func(session uintptr, surface *uintptr) int32
}

// symbol pairs an exported name with the field bound to it.
type symbol struct {
	name string
	fptr any
}

func (l *Library) symbols() []symbol {
	return []symbol{
		{"MFXLoad", &l.mfxLoad},
		{"MFXUnload", &l.mfxUnload},
		{"MFXCreateSession", &l.mfxCreateSession},
		{"MFXClose", &l.mfxClose},
		{"MFXQueryVersion", &l.mfxQueryVersion},
		{"MFXQueryIMPL", &l.mfxQueryIMPL},
		{"MFXQueryAdaptersNumber", &l.mfxQueryAdaptersNumber},
		{"MFXVideoCORE_SetFrameAllocator", &l.setFrameAllocator},
		{"MFXVideoCORE_SyncOperation", &l.syncOperation},
		{"MFXMemory_GetSurfaceForDecode", &l.getSurfaceForDecode},
		{"MFXMemory_GetSurfaceForEncode", &l.getSurfaceForEncode},
		{"MFXMemory_GetSurfaceForVPP", &l.getSurfaceForVPPIn},
		{"MFXMemory_GetSurfaceForVPPOut", &l.getSurfaceForVPPOut},
	}
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
	defaultErr  error
)

// Load opens the dispatcher at path. An empty path searches EnvLibraryPath
// and then the usual library names; that result is cached for the process.
func Load(path string) (*Library, error) {
	if path != "" {
		return open([]string{path})
	}
	defaultOnce.Do(func() {
		defaultLib, defaultErr = open(libraryPaths())
	})
	return defaultLib, defaultErr
}

func libraryPaths() []string {
	var paths []string
	if env := os.Getenv(EnvLibraryPath); env != "" {
		paths = append(paths, env)
	}
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths, "libvpl.2.dylib", "/usr/local/lib/libvpl.2.dylib", "/opt/homebrew/lib/libvpl.2.dylib")
	default:
		paths = append(paths, "libvpl.so.2", "libvpl.so", "/usr/lib/x86_64-linux-gnu/libvpl.so.2", "/usr/local/lib/libvpl.so.2")
	}
	return paths
}

func open(paths []string) (*Library, error) {
	lastErr := ErrLibraryNotFound
	for _, path := range paths {
		handle, err := dlopen(path)
		if err != nil {
			lastErr = fmt.Errorf("%w: %s: %w", ErrLibraryNotFound, path, err)
			continue
		}
		l := &Library{path: path, handle: handle}
		if err := l.bind(); err != nil {
			dlclose(handle)
			lastErr = err
			continue
		}

		logrus.WithFields(logrus.Fields{
			"function": "libvpl.Load",
			"path":     path,
		}).Info("Loaded oneVPL dispatcher")
		return l, nil
	}
	return nil, lastErr
}

func (l *Library) bind() error {
	for _, s := range l.symbols() {
		if err := bindSymbol(l.handle, s.name, s.fptr); err != nil {
			return fmt.Errorf("libvpl: bind %s in %s: %w", s.name, l.path, err)
		}
	}
	return nil
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string { return l.path }

// AdaptersNumber returns how many accelerator adapters the dispatcher sees.
func (l *Library) AdaptersNumber() (int, error) {
	var n uint32
	if err := status.FromCode(l.mfxQueryAdaptersNumber(&n)).Err(); err != nil {
		return 0, fmt.Errorf("query adapters: %w", err)
	}
	return int(n), nil
}
