package engine

import (
	"testing"

	"taskforge/models"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_NoDependenciesProceeds(t *testing.T) {
	step := models.SequenceStep{}

	decision, reason := Evaluate(step, nil, false)
	assert.Equal(t, Proceed, decision)
	assert.Empty(t, reason)
}

func TestEvaluate_AbsentDependencyBlocks(t *testing.T) {
	step := models.SequenceStep{DependsOn: []uint{1}}

	decision, reason := Evaluate(step, map[uint]*models.SequenceAssignment{}, false)
	assert.Equal(t, BlockDeps, decision)
	assert.Equal(t, ReasonWaitingDependencies, reason)
}

func TestEvaluate_UndoneDependencyBlocks(t *testing.T) {
	step := models.SequenceStep{DependsOn: []uint{1}}
	byStep := map[uint]*models.SequenceAssignment{
		1: {Status: models.AssignmentStatusOpen},
	}

	decision, _ := Evaluate(step, byStep, false)
	assert.Equal(t, BlockDeps, decision)
}

func TestEvaluate_AllDependenciesDoneProceeds(t *testing.T) {
	step := models.SequenceStep{DependsOn: []uint{1, 2}}
	byStep := map[uint]*models.SequenceAssignment{
		1: {Status: models.AssignmentStatusDone},
		2: {Status: models.AssignmentStatusDone},
	}

	decision, _ := Evaluate(step, byStep, false)
	assert.Equal(t, Proceed, decision)
}

func TestEvaluate_GateBlocksAfterDependenciesClear(t *testing.T) {
	step := models.SequenceStep{DependsOn: []uint{1}}
	byStep := map[uint]*models.SequenceAssignment{
		1: {Status: models.AssignmentStatusDone},
	}

	decision, reason := Evaluate(step, byStep, true)
	assert.Equal(t, BlockGate, decision)
	assert.Equal(t, ReasonWaitingGate, reason)
}

func TestEvaluate_DependencyBlockWinsOverGate(t *testing.T) {
	step := models.SequenceStep{DependsOn: []uint{1}}

	decision, reason := Evaluate(step, map[uint]*models.SequenceAssignment{}, true)
	assert.Equal(t, BlockDeps, decision)
	assert.Equal(t, ReasonWaitingDependencies, reason)
}

func TestNextGate(t *testing.T) {
	plain := models.SequenceStep{}
	pausing := models.SequenceStep{PauseUntilDone: true}

	// Non-pausing steps leave the gate untouched
	assert.False(t, NextGate(false, plain, models.AssignmentStatusOpen))
	assert.True(t, NextGate(true, plain, models.AssignmentStatusDone))

	// A pausing step sets the gate by its own done-ness
	assert.True(t, NextGate(false, pausing, models.AssignmentStatusOpen))
	assert.True(t, NextGate(false, pausing, models.AssignmentStatusBlocked))
	assert.False(t, NextGate(false, pausing, models.AssignmentStatusDone))
	assert.False(t, NextGate(true, pausing, models.AssignmentStatusDone))
}
