package engine

import "taskforge/models"

// Decision is the outcome of evaluating a step's dependencies and the
// running pause gate
type Decision int

const (
	Proceed Decision = iota
	BlockDeps
	BlockGate
)

// Blocked reasons persisted on held assignments
const (
	ReasonWaitingDependencies = "waiting on dependencies"
	ReasonWaitingGate         = "waiting on blocking step"
)

// Evaluate decides whether a step may proceed. Dependencies are satisfied
// only when every prerequisite step has an existing done assignment; an
// absent assignment counts as unsatisfied. The gate check runs second, so
// a dependency block wins over a gate block.
func Evaluate(step models.SequenceStep, byStep map[uint]*models.SequenceAssignment, gateActive bool) (Decision, string) {
	for _, depID := range step.DependsOn {
		a := byStep[depID]
		if a == nil || a.Status != models.AssignmentStatusDone {
			return BlockDeps, ReasonWaitingDependencies
		}
	}
	if gateActive {
		return BlockGate, ReasonWaitingGate
	}
	return Proceed, ""
}

// NextGate folds one step into the gate accumulator threaded through the
// ordered walk. A pause-until-done step sets the gate by its own done-ness,
// so at most one gating step is in effect at a time; other steps leave the
// gate untouched.
func NextGate(gateActive bool, step models.SequenceStep, status string) bool {
	if !step.PauseUntilDone {
		return gateActive
	}
	return status != models.AssignmentStatusDone
}
