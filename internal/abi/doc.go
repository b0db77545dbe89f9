// Package abi mirrors the C structure layouts that cross the boundary to the
// codec engine on 64-bit platforms.
//
// The types here are plain memory layouts: pointer-valued fields are uintptr
// because they always refer to memory owned by the engine, by mmap, or by a
// pinned Go allocation. Nothing in this package allocates or frees.
package abi
