package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	happy := []ItemState{StatePending, StateCollectingEvidence, StateRunningSteps, StateAssembling, StatePersisting, StateDone}
	for i := 0; i < len(happy)-1; i++ {
		assert.True(t, CanTransition(happy[i], happy[i+1]), "%s -> %s", happy[i], happy[i+1])
	}

	for _, s := range happy[:len(happy)-1] {
		assert.True(t, CanTransition(s, StateFailed), "%s -> failed", s)
	}

	assert.False(t, CanTransition(StateRunningSteps, StateCollectingEvidence))
	assert.False(t, CanTransition(StatePending, StateRunningSteps))
	assert.False(t, CanTransition(StateDone, StateFailed))
	assert.False(t, CanTransition(StateFailed, StatePending))
}

func TestItemState_Terminal(t *testing.T) {
	t.Parallel()

	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePersisting.Terminal())
}

func TestItemState_Advance(t *testing.T) {
	t.Parallel()

	s := StatePending
	assert.NoError(t, s.Advance(StateCollectingEvidence))
	assert.Equal(t, StateCollectingEvidence, s)

	err := s.Advance(StateDone)
	assert.Error(t, err)
	assert.Equal(t, StateCollectingEvidence, s)

	assert.NoError(t, s.Advance(StateFailed))
	assert.Error(t, s.Advance(StatePending))
}
