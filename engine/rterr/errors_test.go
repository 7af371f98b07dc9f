package rterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsMatchSentinels(t *testing.T) {
	wrapped := fmt.Errorf("building tlas: %w", &ResourceExhaustionError{Resource: "tlas nodes", Requested: 64})
	assert.ErrorIs(t, wrapped, ErrResourceExhausted)
	assert.NotErrorIs(t, wrapped, ErrDeviceLost)

	var re *ResourceExhaustionError
	require.ErrorAs(t, wrapped, &re)
	assert.Equal(t, uint64(64), re.Requested)

	stale := &StaleAccelerationStructureError{TLASGeneration: 3, TableGeneration: 4}
	assert.ErrorIs(t, stale, ErrStaleAcceleration)
	assert.Contains(t, stale.Error(), "3")

	inner := errors.New("no adapter")
	initErr := &InitializationError{Capability: "compute storage buffers", Err: inner}
	assert.ErrorIs(t, initErr, inner)
	assert.ErrorIs(t, initErr, ErrInitialization)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		phase Phase
		debug bool
		fatal bool
	}{
		{"nil", nil, PhaseFrame, true, false},
		{"init", &InitializationError{Capability: "adapter"}, PhaseSceneLoad, false, true},
		{"device lost", &DeviceLostError{Reason: "hang"}, PhaseFrame, false, true},
		{"exhausted in frame", &ResourceExhaustionError{Resource: "accumulator"}, PhaseFrame, false, false},
		{"exhausted at load", &ResourceExhaustionError{Resource: "blas"}, PhaseSceneLoad, false, true},
		{"not built release", &NotBuiltError{Resource: "blas"}, PhaseFrame, false, false},
		{"not built debug", &NotBuiltError{Resource: "blas"}, PhaseFrame, true, true},
		{"stale", &StaleAccelerationStructureError{}, PhaseFrame, true, false},
		{"target size", fmt.Errorf("dispatch: %w", &TargetSizeError{Target: "accumulator", Width: 4, Height: 4}), PhaseFrame, false, false},
		{"unknown", errors.New("boom"), PhaseFrame, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err, tt.phase, tt.debug))
		})
	}
}
