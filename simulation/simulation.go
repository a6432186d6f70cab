// Package simulation assembles the pieces of a circuit simulation session:
// the stepping core, data recording, tracing, metrics, and the monitoring
// server.
package simulation

import (
	"fmt"

	"github.com/voltlab/relay/analysis"
	"github.com/voltlab/relay/datarecording"
	"github.com/voltlab/relay/monitoring"
	"github.com/voltlab/relay/sim"
	"github.com/voltlab/relay/tracing"
)

// A Simulation bundles the services a simulation session needs. Build one
// with a Builder.
type Simulation struct {
	id         string
	simulation *sim.Simulation

	dataRecorder *datarecording.SQLiteWriter
	monitor      *monitoring.Monitor
	collector    *analysis.StepCollector
	levelTracer  *tracing.DBTracer

	wireNameIndex map[string]sim.ID
}

// ID returns the unique identifier of the session.
func (s *Simulation) ID() string {
	return s.id
}

// GetSimulation returns the stepping core of the session.
func (s *Simulation) GetSimulation() *sim.Simulation {
	return s.simulation
}

// GetDataRecorder returns the data recorder used in the session.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the session. It is nil when
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetStepCollector returns the Prometheus collector of the session. It is
// nil when metrics are disabled.
func (s *Simulation) GetStepCollector() *analysis.StepCollector {
	return s.collector
}

// GetLevelTracer returns the tracer that records wire levels. It is nil
// when tracing is disabled.
func (s *Simulation) GetLevelTracer() *tracing.DBTracer {
	return s.levelTracer
}

// AddWire hands a wire over to the session. Wire names must be unique
// within a session; reusing one is a programming error and panics.
func (s *Simulation) AddWire(w *sim.Wire) (sim.ID, error) {
	name := w.Name()
	if _, ok := s.wireNameIndex[name]; ok {
		panic("wire " + name + " already registered")
	}

	id, err := s.simulation.AddWire(w)
	if err != nil {
		return 0, err
	}

	s.wireNameIndex[name] = id

	return id, nil
}

// GetWireByName returns the wire registered under the given name.
func (s *Simulation) GetWireByName(name string) (*sim.Wire, error) {
	id, ok := s.wireNameIndex[name]
	if !ok {
		return nil, fmt.Errorf("%w: name %q", sim.ErrWireNotFound, name)
	}

	return s.simulation.Wire(id)
}

// Run steps the session's simulation until it finishes or fails.
func (s *Simulation) Run() (sim.SimResult, error) {
	return s.simulation.Run()
}

// Terminate flushes and closes the session's recording database.
func (s *Simulation) Terminate() {
	s.dataRecorder.Flush()

	if err := s.dataRecorder.Close(); err != nil {
		panic(err)
	}
}
