// Package engine defines the boundary between this module and a codec
// engine.
//
// An engine decodes, encodes and post-processes video asynchronously: every
// submit call returns a SyncPoint and the caller later waits on it with
// Core.SyncOperation. Engines report outcomes as status.Status errors.
//
// Two implementations ship with the module: engine/software, a pure-Go
// engine with an uncompressed codec used by tests and examples, and the
// core subset bound from the real dispatcher library in package libvpl.
package engine
