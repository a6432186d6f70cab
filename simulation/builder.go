package simulation

import (
	"time"

	"github.com/rs/xid"

	"github.com/voltlab/relay/analysis"
	"github.com/voltlab/relay/datarecording"
	"github.com/voltlab/relay/monitoring"
	"github.com/voltlab/relay/sim"
	"github.com/voltlab/relay/tracing"
)

// Builder can be used to build a simulation session.
type Builder struct {
	interval       sim.VTimeInTick
	phaseTimeout   time.Duration
	poolSize       int
	monitorOn      bool
	monitorPort    int
	metricsOn      bool
	tracingOn      bool
	outputFileName string
}

// MakeBuilder creates a new builder with monitoring enabled and an interval
// of one tick per step.
func MakeBuilder() Builder {
	return Builder{
		interval:  1,
		monitorOn: true,
	}
}

// WithInterval sets how many ticks the simulation advances per step.
func (b Builder) WithInterval(ticks sim.VTimeInTick) Builder {
	b.interval = ticks
	return b
}

// WithPhaseTimeout sets how long a step phase waits for each worker result.
func (b Builder) WithPhaseTimeout(timeout time.Duration) Builder {
	b.phaseTimeout = timeout
	return b
}

// WithPoolSize sets the number of workers stepping wires.
func (b Builder) WithPoolSize(workers int) Builder {
	b.poolSize = workers
	return b
}

// WithoutMonitoring sets the session to not start a monitoring server.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithMetrics sets the session to collect Prometheus metrics.
func (b Builder) WithMetrics() Builder {
	b.metricsOn = true
	return b
}

// WithLevelTracing sets the session to record every wire's level after each
// step into the recording database.
func (b Builder) WithLevelTracing() Builder {
	b.tracingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.interval == 0 {
		panic("simulation interval must not be zero")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build builds the simulation session.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		wireNameIndex: make(map[string]sim.ID),
	}

	s.simulation = sim.NewSimulation(b.interval)
	if b.phaseTimeout > 0 {
		s.simulation.SetPhaseTimeout(b.phaseTimeout)
	}
	if b.poolSize > 0 {
		s.simulation.SetPoolSize(b.poolSize)
	}

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "relay_sim_" + s.id
	}
	s.dataRecorder = datarecording.NewSQLiteWriter(outputPath)
	s.dataRecorder.Init()

	if b.tracingOn {
		s.levelTracer = tracing.NewDBTracer(s.dataRecorder)
		tracing.CollectLevels(s.simulation, s.levelTracer)
	}

	if b.metricsOn {
		collector, err := analysis.NewStepCollector(nil)
		if err != nil {
			panic(err)
		}

		collector.Attach(s.simulation)
		s.collector = collector
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}

		s.monitor.RegisterSimulation(s.simulation)
		if s.collector != nil {
			s.monitor.RegisterStepCollector(s.collector)
		}

		s.monitor.StartServer()
	}

	return s
}
