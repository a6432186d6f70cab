// Package tracing provides tracers that record wire levels over the course
// of a simulation.
package tracing

import (
	"github.com/voltlab/relay/sim"
)

// A LevelSample is one observation of a wire at a point in simulated time.
type LevelSample struct {
	Tick     sim.VTimeInTick
	WireID   sim.ID
	WireName string
	Pull     sim.Pull
	Level    sim.Level
}

// A Tracer consumes level samples as a simulation produces them.
type Tracer interface {
	RecordSample(s LevelSample)
}

// CollectLevels attaches a tracer to a simulation. After every step that
// completes without error, the tracer receives one sample per wire.
func CollectLevels(s *sim.Simulation, tracer Tracer) {
	s.AcceptHook(&levelHook{sim: s, tracer: tracer})
}

type levelHook struct {
	sim    *sim.Simulation
	tracer Tracer
}

// Func records a snapshot of every wire when a step ends. Steps that fail
// leave wires checked out and are skipped.
func (h *levelHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosStepEnd {
		return
	}

	rec := ctx.Item.(sim.StepRecord)
	if rec.Err != nil {
		return
	}

	count := h.sim.WireCount()
	for id := 0; id < count; id++ {
		wire, err := h.sim.Wire(sim.ID(id))
		if err != nil {
			continue
		}

		h.tracer.RecordSample(LevelSample{
			Tick:     rec.Now,
			WireID:   sim.ID(id),
			WireName: wire.Name(),
			Pull:     wire.Pull(),
			Level:    wire.Measure(),
		})
	}
}
