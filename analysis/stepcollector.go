// Package analysis collects runtime metrics from a simulation and exposes
// them in Prometheus format.
package analysis

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voltlab/relay/sim"
)

var _ sim.Hook = (*StepCollector)(nil)

// StepCollector bundles Prometheus metrics describing a running simulation.
// It is a sim.Hook; subscribe it with Attach and the metrics update as the
// simulation steps.
type StepCollector struct {
	gatherer prometheus.Gatherer

	Steps          prometheus.Counter
	StepFailures   prometheus.Counter
	PhaseTimeouts  prometheus.Counter
	SimulatedTicks prometheus.Gauge
	PhaseDurations *prometheus.HistogramVec
	WireLevels     *prometheus.GaugeVec
}

// NewStepCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewStepCollector(reg prometheus.Registerer) (*StepCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_steps_total",
		Help: "Total number of simulation steps taken.",
	}), "relay_steps_total")
	if err != nil {
		return nil, err
	}

	failures, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_step_failures_total",
		Help: "Total number of steps that ended in a phase error.",
	}), "relay_step_failures_total")
	if err != nil {
		return nil, err
	}

	timeouts, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_phase_timeouts_total",
		Help: "Total number of phases abandoned waiting for worker results.",
	}), "relay_phase_timeouts_total")
	if err != nil {
		return nil, err
	}

	ticks, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_simulated_ticks",
		Help: "Current simulated time in ticks.",
	}), "relay_simulated_ticks")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_phase_duration_seconds",
		Help:    "Wall-clock time spent in each step phase.",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 0.01, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"phase"}), "relay_phase_duration_seconds")
	if err != nil {
		return nil, err
	}

	levels, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_wire_level",
		Help: "Most recent level of each wire, in [0, 1].",
	}, []string{"wire"}), "relay_wire_level")
	if err != nil {
		return nil, err
	}

	return &StepCollector{
		gatherer:       gatherer,
		Steps:          steps,
		StepFailures:   failures,
		PhaseTimeouts:  timeouts,
		SimulatedTicks: ticks,
		PhaseDurations: durations,
		WireLevels:     levels,
	}, nil
}

// Attach subscribes the collector to a simulation's hook stream.
func (c *StepCollector) Attach(domain sim.Hookable) {
	domain.AcceptHook(c)
}

// Func implements sim.Hook.
func (c *StepCollector) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosPhaseEnd:
		rec := ctx.Item.(sim.PhaseRecord)
		c.PhaseDurations.WithLabelValues(rec.Phase).Observe(rec.Duration.Seconds())
		if errors.Is(rec.Err, sim.ErrPhaseTimeout) {
			c.PhaseTimeouts.Inc()
		}
	case sim.HookPosWireStepped:
		r := ctx.Item.(sim.WireStepResult)
		c.WireLevels.WithLabelValues(r.Wire.Name()).Set(float64(r.Wire.Measure()))
	case sim.HookPosStepEnd:
		rec := ctx.Item.(sim.StepRecord)
		c.Steps.Inc()
		c.SimulatedTicks.Set(float64(rec.Now))
		if rec.Err != nil {
			c.StepFailures.Inc()
		}
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *StepCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// register tolerates double registration of an identical collector, which
// happens when two collectors share a registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	are, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return c, err
	}

	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("collector %s already registered with incompatible type", name)
	}

	return existing, nil
}
