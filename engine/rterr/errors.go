// Package rterr holds the renderer's error taxonomy.
//
// Every error kind is a concrete type usable with errors.As, and also matches a sentinel
// through errors.Is so callers can branch on the kind without unpacking fields.
package rterr

import (
	"errors"
	"fmt"
)

var (
	ErrInitialization    = errors.New("rterr: initialization failed")
	ErrNotBuilt          = errors.New("rterr: resource not built")
	ErrStaleAcceleration = errors.New("rterr: stale acceleration structure")
	ErrResourceExhausted = errors.New("rterr: resource exhausted")
	ErrDeviceLost        = errors.New("rterr: device lost")
	ErrTargetSize        = errors.New("rterr: render target size mismatch")
)

// InitializationError reports a required GPU capability that is unavailable at startup.
type InitializationError struct {
	Capability string
	Err        error
}

func (e *InitializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("initialization: %s unavailable: %v", e.Capability, e.Err)
	}
	return fmt.Sprintf("initialization: %s unavailable", e.Capability)
}

func (e *InitializationError) Unwrap() error { return e.Err }

func (e *InitializationError) Is(target error) bool { return target == ErrInitialization }

// NotBuiltError reports a BLAS, SBT or pipeline queried before construction.
type NotBuiltError struct {
	Resource string
	Key      string
}

func (e *NotBuiltError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s queried before it was built", e.Resource)
	}
	return fmt.Sprintf("%s %q queried before it was built", e.Resource, e.Key)
}

func (e *NotBuiltError) Is(target error) bool { return target == ErrNotBuilt }

// StaleAccelerationStructureError reports a dispatch attempted against a TLAS older than the instance table.
type StaleAccelerationStructureError struct {
	TLASGeneration  uint64
	TableGeneration uint64
}

func (e *StaleAccelerationStructureError) Error() string {
	return fmt.Sprintf("tlas generation %d lags instance table generation %d", e.TLASGeneration, e.TableGeneration)
}

func (e *StaleAccelerationStructureError) Is(target error) bool {
	return target == ErrStaleAcceleration
}

// ResourceExhaustionError reports a GPU memory or descriptor allocation failure.
type ResourceExhaustionError struct {
	Resource  string
	Requested uint64
	Err       error
}

func (e *ResourceExhaustionError) Error() string {
	msg := fmt.Sprintf("out of resources allocating %s", e.Resource)
	if e.Requested > 0 {
		msg += fmt.Sprintf(" (%d bytes)", e.Requested)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResourceExhaustionError) Unwrap() error { return e.Err }

func (e *ResourceExhaustionError) Is(target error) bool { return target == ErrResourceExhausted }

// TargetSizeError reports a frame whose size differs from the render target it writes into,
// typically after a resize that could not be allocated. The frame is dropped.
type TargetSizeError struct {
	Target        string
	Width, Height int
	Have          [2]int
}

func (e *TargetSizeError) Error() string {
	return fmt.Sprintf("frame is %dx%d, %s is %dx%d", e.Width, e.Height, e.Target, e.Have[0], e.Have[1])
}

func (e *TargetSizeError) Is(target error) bool { return target == ErrTargetSize }

// DeviceLostError reports an unrecoverable GPU fault.
type DeviceLostError struct {
	Reason string
	Err    error
}

func (e *DeviceLostError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device lost: %s: %v", e.Reason, e.Err)
	}
	return "device lost: " + e.Reason
}

func (e *DeviceLostError) Unwrap() error { return e.Err }

func (e *DeviceLostError) Is(target error) bool { return target == ErrDeviceLost }

// Phase identifies where in the process lifetime an error surfaced; it changes how fatal it is.
type Phase int

const (
	// PhaseSceneLoad covers startup up to and including the first acceleration structure build.
	PhaseSceneLoad Phase = iota
	// PhaseFrame covers steady-state frames.
	PhaseFrame
)

// IsFatal classifies err for the frame loop.
//
// Parameters:
//   - err: the error to classify (nil is never fatal)
//   - phase: when the error surfaced
//   - debug: whether programming errors (NotBuilt) should abort
//
// Returns:
//   - bool: true when the process must tear down and exit
func IsFatal(err error, phase Phase, debug bool) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInitialization), errors.Is(err, ErrDeviceLost):
		return true
	case errors.Is(err, ErrNotBuilt):
		return debug
	case errors.Is(err, ErrResourceExhausted):
		return phase == PhaseSceneLoad
	case errors.Is(err, ErrStaleAcceleration), errors.Is(err, ErrTargetSize):
		return false
	default:
		return true
	}
}
