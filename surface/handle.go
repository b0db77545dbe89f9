package surface

import "time"

// Handle is the engine-side surface descriptor together with its function
// table. Implementations report failures as status.Status values.
//
// Info and Data return pointers into the descriptor so that changes made
// through them (time stamps, plane pointers) are seen by the engine.
type Handle interface {
	Info() *FrameInfo
	Data() *FrameData
	Map(flag MemoryFlag) error
	Unmap() error
	Release() error
	Synchronize(timeout time.Duration) error
}
