package main

import (
	"fmt"

	"github.com/voltlab/relay/sim"
	"github.com/voltlab/relay/simulation"
)

// buildDemoCircuit adds count wires pulled to alternating rails, with time
// constants staggered so they settle at visibly different rates.
func buildDemoCircuit(
	session *simulation.Simulation,
	count int,
	interval sim.VTimeInTick,
) []*sim.Wire {
	wires := make([]*sim.Wire, 0, count)
	for i := 0; i < count; i++ {
		pull := sim.PullUp
		if i%2 == 1 {
			pull = sim.PullDown
		}

		w := sim.NewWire(fmt.Sprintf("node%d", i), pull)
		w.SetTimeConstant(float64(interval) * float64(i+2) / 4)

		if _, err := session.AddWire(w); err != nil {
			panic(err)
		}

		wires = append(wires, w)
	}

	return wires
}

// squareWaveDriver is the input phase of the demo. Every period steps it
// flips each wire's pull to the opposite rail.
type squareWaveDriver struct {
	wires  []*sim.Wire
	period uint64
	count  uint64
}

func newSquareWaveDriver(wires []*sim.Wire, period uint64) *squareWaveDriver {
	if period == 0 {
		period = 1
	}

	return &squareWaveDriver{wires: wires, period: period}
}

func (d *squareWaveDriver) Step(sim.VTimeInTick) (sim.SimResult, error) {
	d.count++
	if d.count%d.period != 0 {
		return sim.Continuing, nil
	}

	for _, w := range d.wires {
		if w.Pull() == sim.PullDown {
			w.SetPull(sim.PullUp)
		} else {
			w.SetPull(sim.PullDown)
		}
	}

	return sim.Continuing, nil
}

// demoElement is the element phase of the demo. It drives an enable pin
// from the watched wire's level, like a comparator with a propagation
// delay, and finishes the run after a fixed number of steps.
type demoElement struct {
	watched   *sim.Wire
	pin       *sim.OutputPin
	target    sim.PinState
	remaining uint64
}

func newDemoElement(
	watched *sim.Wire,
	steps uint64,
	pinDelay sim.VTimeInTick,
) *demoElement {
	return &demoElement{
		watched:   watched,
		pin:       sim.NewOutputPin("enable", sim.PinLow, pinDelay),
		target:    sim.PinHighZ,
		remaining: steps,
	}
}

// Pin returns the enable pin the element drives.
func (e *demoElement) Pin() *sim.OutputPin {
	return e.pin
}

func (e *demoElement) Step(deltaT sim.VTimeInTick) (sim.SimResult, error) {
	e.pin.Step(deltaT)

	level := e.watched.Measure()
	switch {
	case level > 0.9 && e.target != sim.PinHigh:
		e.target = sim.PinHigh
		e.pin.Set(e.target)
	case level < 0.1 && e.target != sim.PinLow:
		e.target = sim.PinLow
		e.pin.Set(e.target)
	}

	if e.remaining > 0 {
		e.remaining--
	}
	if e.remaining == 0 {
		return sim.Finished, nil
	}

	return sim.Continuing, nil
}
