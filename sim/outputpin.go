package sim

import "fmt"

// PinState is the digital state a pin drives or has committed.
type PinState int

// Possible pin states.
const (
	PinLow PinState = iota
	PinHigh
	PinHighZ
)

func (s PinState) String() string {
	switch s {
	case PinLow:
		return "Low"
	case PinHigh:
		return "High"
	case PinHighZ:
		return "HighZ"
	default:
		return fmt.Sprintf("PinState(%d)", int(s))
	}
}

// An OutputPin commits a driven state onto its wire after a propagation
// delay. Set latches the state to drive; Step counts the delay down and
// commits once it has fully elapsed.
type OutputPin struct {
	name        string
	propagating PinState
	state       PinState
	delay       VTimeInTick
	remaining   VTimeInTick
}

// NewOutputPin creates an OutputPin committed to the given initial state.
// Until the first call to Set, the pin never commits anything, no matter
// how much simulated time passes.
func NewOutputPin(name string, initial PinState, delay VTimeInTick) *OutputPin {
	return &OutputPin{
		name:        name,
		propagating: PinHighZ,
		state:       initial,
		delay:       delay,
		remaining:   MaxVTimeInTick,
	}
}

// Name returns the pin's name.
func (p *OutputPin) Name() string {
	return p.name
}

// State returns the committed output state.
func (p *OutputPin) State() PinState {
	return p.state
}

// Delay returns the propagation delay in ticks.
func (p *OutputPin) Delay() VTimeInTick {
	return p.delay
}

// Set latches a new state to drive. The propagation countdown restarts,
// even when an earlier Set has not committed yet.
func (p *OutputPin) Set(s PinState) {
	p.propagating = s
	p.remaining = p.delay
}

// Step advances the pin by deltaT ticks, committing the latched state once
// the propagation delay has fully elapsed.
func (p *OutputPin) Step(deltaT VTimeInTick) {
	if deltaT >= p.remaining {
		p.state = p.propagating
		p.remaining = 0
		return
	}

	p.remaining -= deltaT
}
