//go:build !(darwin || (linux && (amd64 || arm64)))

package libvpl

import "github.com/opd-ai/onevpl/status"

func dlopen(string) (uintptr, error) { return 0, ErrUnsupportedPlatform }

func dlclose(uintptr) {}

func bindSymbol(uintptr, string, any) error { return ErrUnsupportedPlatform }

func callStatus(uintptr, ...uintptr) status.Status { return status.Unsupported }
