package trigger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/trigger"
)

func TestIntervalFlushRounds(t *testing.T) {
	cases := []struct {
		pollSeconds, flushSeconds int
		expectedFlushRounds       int
		wantErr                   bool
	}{
		{1, 1, 1, false},
		{1, 2, 2, false},
		{2, 1, 0, true}, // flushing more often than polling is invalid
		{2, 2, 1, false},
		{22, 44, 2, false},
		{21, 44, 2, false}, // rounding
		{22, 88, 4, false},
		{0, 1, 0, true},
		{1, 0, 0, true},
		{0, 0, 0, true},
	}
	for _, c := range cases {
		spec, err := trigger.NewInterval(time.Duration(c.pollSeconds) * time.Second).
			FlushInterval(time.Duration(c.flushSeconds) * time.Second).
			Build()
		if c.wantErr {
			assert.ErrorIs(t, err, trigger.ErrInvalidInterval)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, c.expectedFlushRounds, spec.FlushRounds)
	}
}

func TestUpdateIntervalSmallerThanPollForcesInterruptible(t *testing.T) {
	spec, err := trigger.NewInterval(10 * time.Second).
		UpdateInterval(1 * time.Second).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 1, spec.UpdateRounds)
	assert.True(t, spec.Interruptible)
}

func TestUpdateIntervalLargerThanPoll(t *testing.T) {
	spec, err := trigger.NewInterval(1 * time.Second).
		UpdateInterval(5 * time.Second).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 5, spec.UpdateRounds)
}

func TestRealtimePriorityBelowThreshold(t *testing.T) {
	spec, err := trigger.NewInterval(2 * time.Millisecond).Build()
	require.NoError(t, err)
	assert.True(t, spec.RealtimePriority)

	spec, err = trigger.NewInterval(10 * time.Millisecond).Build()
	require.NoError(t, err)
	assert.False(t, spec.RealtimePriority)
}

func TestManualTriggerDefaultsInterruptible(t *testing.T) {
	spec, err := trigger.NewManual().Build()
	require.NoError(t, err)
	assert.True(t, spec.Manual)
	assert.True(t, spec.Interruptible)
	assert.True(t, spec.AllowManualTrigger)
}

func TestIntervalTriggerAllowManualTrigger(t *testing.T) {
	spec, err := trigger.NewInterval(time.Second).Build()
	require.NoError(t, err)
	assert.False(t, spec.AllowManualTrigger)

	spec, err = trigger.NewInterval(time.Second).AllowManualTrigger(true).Build()
	require.NoError(t, err)
	assert.True(t, spec.AllowManualTrigger)
}
