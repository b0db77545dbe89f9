package status

import (
	"errors"
	"fmt"
)

// Status is an engine status code. Zero means success, negative values are
// errors and positive values are warnings or task states.
type Status int32

// Error codes.
const (
	None                   Status = 0
	Unknown                Status = -1
	NullPtr                Status = -2
	Unsupported            Status = -3
	MemoryAlloc            Status = -4
	NotEnoughBuffer        Status = -5
	InvalidHandle          Status = -6
	LockMemory             Status = -7
	NotInitialized         Status = -8
	NotFound               Status = -9
	MoreData               Status = -10
	MoreSurface            Status = -11
	Aborted                Status = -12
	DeviceLost             Status = -13
	IncompatibleVideoParam Status = -14
	InvalidVideoParam      Status = -15
	UndefinedBehavior      Status = -16
	DeviceFailed           Status = -17
	MoreBitstream          Status = -18
	GPUHang                Status = -21
	ReallocSurface         Status = -22
	ResourceMapped         Status = -23
	NotImplemented         Status = -24
	MoreDataSubmitTask     Status = -10000
)

// Warning codes and task states.
const (
	InExecution                Status = 1
	DeviceBusy                 Status = 2
	VideoParamChanged          Status = 3
	PartialAcceleration        Status = 4
	WarnIncompatibleVideoParam Status = 5
	ValueNotChanged            Status = 6
	OutOfRange                 Status = 7
	TaskWorking                Status = 8
	TaskBusy                   Status = 9
	FilterSkipped              Status = 10
	NonePartialOutput          Status = 12
	AllocTimeoutExpired        Status = 13
)

// Class groups statuses by the action a caller is expected to take.
type Class uint8

const (
	// ClassSuccess covers None and partial-output completion.
	ClassSuccess Class = iota
	// ClassWarning covers informational warnings; the call succeeded.
	ClassWarning
	// ClassFlowControl statuses are retried by a well-defined caller action.
	ClassFlowControl
	// ClassTimeout statuses mean the operation has not finished yet.
	ClassTimeout
	// ClassResource statuses are local to one operation and may be retried
	// with adjusted buffer sizing.
	ClassResource
	// ClassFatal statuses terminate the session.
	ClassFatal
)

var classNames = map[Class]string{
	ClassSuccess:     "success",
	ClassWarning:     "warning",
	ClassFlowControl: "flow-control",
	ClassTimeout:     "timeout",
	ClassResource:    "resource",
	ClassFatal:       "fatal",
}

// String returns the class name.
func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

var names = map[Status]string{
	None:                       "none",
	Unknown:                    "unknown error",
	NullPtr:                    "null pointer",
	Unsupported:                "unsupported feature",
	MemoryAlloc:                "failed to allocate memory",
	NotEnoughBuffer:            "insufficient buffer at input/output",
	InvalidHandle:              "invalid handle",
	LockMemory:                 "failed to lock the memory block",
	NotInitialized:             "called before initialization",
	NotFound:                   "object not found",
	MoreData:                   "more data needed at input",
	MoreSurface:                "more surface needed at output",
	Aborted:                    "operation aborted",
	DeviceLost:                 "hardware acceleration device lost",
	IncompatibleVideoParam:     "incompatible video parameters",
	InvalidVideoParam:          "invalid video parameters",
	UndefinedBehavior:          "undefined behavior",
	DeviceFailed:               "device operation failure",
	MoreBitstream:              "more bitstream buffers needed at output",
	GPUHang:                    "device operation failure caused by GPU hang",
	ReallocSurface:             "bigger output surface required",
	ResourceMapped:             "resource already mapped",
	NotImplemented:             "feature not implemented",
	MoreDataSubmitTask:         "more data needed, internal task submitted",
	InExecution:                "previous asynchronous operation is in execution",
	DeviceBusy:                 "hardware acceleration device is busy",
	VideoParamChanged:          "video parameters changed",
	PartialAcceleration:        "software acceleration is used",
	WarnIncompatibleVideoParam: "incompatible video parameters resolved",
	ValueNotChanged:            "value saturated to its valid range",
	OutOfRange:                 "value out of valid range",
	TaskWorking:                "task is still working",
	TaskBusy:                   "task is waiting for resources",
	FilterSkipped:              "requested filter skipped",
	NonePartialOutput:          "frame not ready, partial output produced",
	AllocTimeoutExpired:        "timeout expired for internal frame allocation",
}

// FromCode converts a raw engine code into a Status. Codes the engine is not
// documented to return map to Unknown.
func FromCode(code int32) Status {
	st := Status(code)
	if _, ok := names[st]; ok {
		return st
	}
	return Unknown
}

// Code returns the raw engine code.
func (s Status) Code() int32 {
	return int32(s)
}

// String returns a human-readable description.
func (s Status) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Error implements error.
func (s Status) Error() string {
	return fmt.Sprintf("engine status %d: %s", int32(s), s.String())
}

// Class reports how a caller should react to s.
func (s Status) Class() Class {
	switch s {
	case None, NonePartialOutput:
		return ClassSuccess
	case MoreData, MoreSurface, VideoParamChanged, MoreBitstream, MoreDataSubmitTask:
		return ClassFlowControl
	case InExecution, DeviceBusy, TaskWorking, TaskBusy:
		return ClassTimeout
	case MemoryAlloc, LockMemory, NotEnoughBuffer, ReallocSurface, ResourceMapped:
		return ClassResource
	}
	if s > 0 {
		return ClassWarning
	}
	return ClassFatal
}

// Ok reports whether the call that produced s succeeded, including
// informational warnings.
func (s Status) Ok() bool {
	c := s.Class()
	return c == ClassSuccess || c == ClassWarning
}

// IsFlowControl reports whether s asks the caller to feed, drain or refresh.
func (s Status) IsFlowControl() bool {
	return s.Class() == ClassFlowControl
}

// IsTimeout reports whether s means "not done yet".
func (s Status) IsTimeout() bool {
	return s.Class() == ClassTimeout
}

// IsFatal reports whether s terminates the session.
func (s Status) IsFatal() bool {
	return s.Class() == ClassFatal
}

// Err returns nil when s reports success, otherwise s itself.
func (s Status) Err() error {
	if s.Ok() {
		return nil
	}
	return s
}

// Of extracts the Status carried by err. A nil error yields None and an error
// without a Status yields Unknown.
func Of(err error) Status {
	if err == nil {
		return None
	}
	var st Status
	if errors.As(err, &st) {
		return st
	}
	return Unknown
}
