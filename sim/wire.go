package sim

import (
	"fmt"
	"math"
)

// Pull is the rail a wire's level is drawn toward.
type Pull int

// Possible pull directions. The zero value is PullNone.
const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullNone:
		return "None"
	case PullUp:
		return "Up"
	case PullDown:
		return "Down"
	default:
		return fmt.Sprintf("Pull(%d)", int(p))
	}
}

// A Wire carries an analog signal level that decays toward the rail it is
// pulled to. Wires are passive between steps; Step applies the decay for
// the ticks that elapsed.
type Wire struct {
	name        string
	defaultPull Pull
	pull        Pull
	tau         float64
	level       Level

	id         ID
	idAssigned bool
}

// NewWire creates a Wire. The initial level is seeded from the default
// pull: 1.0 for PullUp, 0.0 for PullDown, 0.5 for PullNone. The active
// pull starts as PullNone and tau starts as 0.
func NewWire(name string, defaultPull Pull) *Wire {
	w := &Wire{
		name:        name,
		defaultPull: defaultPull,
	}

	switch defaultPull {
	case PullUp:
		w.level = NewLevel(1.0)
	case PullDown:
		w.level = NewLevel(0.0)
	default:
		w.level = NewLevel(0.5)
	}

	return w
}

// Name returns the wire's name.
func (w *Wire) Name() string {
	return w.name
}

// Pull returns the effective pull: the active pull if one is applied,
// otherwise the wire's default pull.
func (w *Wire) Pull() Pull {
	if w.pull == PullNone {
		return w.defaultPull
	}

	return w.pull
}

// SetPull applies an active pull. It overrides the default pull until set
// back to PullNone.
func (w *Wire) SetPull(p Pull) {
	w.pull = p
}

// TimeConstant returns tau in ticks.
func (w *Wire) TimeConstant() float64 {
	return w.tau
}

// SetTimeConstant sets tau in ticks. With a tau of 0 the wire follows its
// pull instantly.
func (w *Wire) SetTimeConstant(tau float64) {
	w.tau = tau
}

// Measure reads the wire's current level.
func (w *Wire) Measure() Level {
	return w.level
}

// Step advances the wire by deltaT ticks, decaying the level toward the
// effective pull's rail. With no effective pull the level holds.
func (w *Wire) Step(deltaT VTimeInTick) {
	pull := w.Pull()
	if pull == PullNone {
		return
	}

	// A zero tau must short-circuit to the rail; the exponent would
	// otherwise be 0/0.
	decayed := 0.0
	if w.tau != 0 {
		decayed = float64(w.level) * math.Exp(-float64(deltaT)/w.tau)
	}

	switch pull {
	case PullUp:
		w.level = NewLevel(1.0 - decayed)
	case PullDown:
		w.level = NewLevel(decayed)
	}
}

// AssignID binds the wire to the slot it was added under. The id can be
// assigned only once; a failed assignment leaves the original id in place.
func (w *Wire) AssignID(id ID) error {
	if w.idAssigned {
		return fmt.Errorf("%w: wire %q", ErrAlreadyAssigned, w.name)
	}

	w.id = id
	w.idAssigned = true

	return nil
}

// ID returns the slot id the wire was added under.
func (w *Wire) ID() (ID, error) {
	if !w.idAssigned {
		return 0, fmt.Errorf("%w: wire %q", ErrUnassigned, w.name)
	}

	return w.id, nil
}
