package sim

import "fmt"

// SimResult is the outcome of a phase, a step, or a whole run.
type SimResult int

const (
	// Continuing indicates the simulation has more work to do.
	Continuing SimResult = iota
	// Finished indicates some component has declared the simulation done.
	Finished
)

func (r SimResult) String() string {
	switch r {
	case Continuing:
		return "Continuing"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("SimResult(%d)", int(r))
	}
}

// A Phase is one stage of a simulation step. Collaborator domains, such as
// input samplers and element evaluators, attach to the Simulation by
// implementing Phase. Results fold across a step by boolean or: the step
// is Finished as soon as any phase is.
type Phase interface {
	Step(deltaT VTimeInTick) (SimResult, error)
}

// noopPhase stands in for collaborator domains that are not attached.
type noopPhase struct{}

func (noopPhase) Step(deltaT VTimeInTick) (SimResult, error) {
	return Continuing, nil
}
