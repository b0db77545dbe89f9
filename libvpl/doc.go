// Package libvpl binds the oneVPL dispatcher library (libvpl.so.2) at run
// time through purego, without cgo.
//
// Only the core of the API is bound: loading an implementation, creating a
// session, querying its version and implementation, installing a frame
// allocator, synchronizing operations and obtaining engine-allocated
// surfaces. Session implements engine.Core and RawSurface implements
// surface.Handle, so surfaces handed out by the library are read through
// surface.FrameSurface like any other:
//
//	lib, err := libvpl.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	session, err := lib.NewSession(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	raw, err := session.GetSurfaceForVPPIn()
//	frame, err := surface.New(raw)
//
// On platforms purego cannot call into on its own, Load returns
// ErrUnsupportedPlatform.
package libvpl
