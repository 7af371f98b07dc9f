package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
)

// Classify maps a WebGPU error onto the error taxonomy by its message: lost devices and
// surfaces become DeviceLostError, allocation failures become ResourceExhaustionError.
// Anything else is returned wrapped with the operation name.
//
// Parameters:
//   - op: the operation that failed
//   - err: the raw error
//
// Returns:
//   - error: the classified error, or nil when err is nil
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "lost"), strings.Contains(msg, "device is invalid"), strings.Contains(msg, "timeout"):
		return &rterr.DeviceLostError{Reason: op, Err: err}
	case strings.Contains(msg, "out of memory"), strings.Contains(msg, "outofmemory"),
		strings.Contains(msg, "allocation"), strings.Contains(msg, "too large"):
		return &rterr.ResourceExhaustionError{Resource: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
