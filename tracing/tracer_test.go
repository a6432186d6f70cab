package tracing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voltlab/relay/sim"
)

// captureTracer keeps samples in memory.
type captureTracer struct {
	samples []LevelSample
}

func (t *captureTracer) RecordSample(s LevelSample) {
	t.samples = append(t.samples, s)
}

// failingPhase fails every step it runs in.
type failingPhase struct{}

func (failingPhase) Step(sim.VTimeInTick) (sim.SimResult, error) {
	return sim.Continuing, errors.New("element refused to settle")
}

var _ = Describe("CollectLevels", func() {
	var (
		s      *sim.Simulation
		tracer *captureTracer
	)

	BeforeEach(func() {
		s = sim.NewSimulation(10)
		tracer = &captureTracer{}
		CollectLevels(s, tracer)

		a := sim.NewWire("a", sim.PullUp)
		a.SetTimeConstant(5)
		_, err := s.AddWire(a)
		Expect(err).ToNot(HaveOccurred())

		b := sim.NewWire("b", sim.PullDown)
		b.SetTimeConstant(5)
		_, err = s.AddWire(b)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should record one sample per wire per step", func() {
		_, err := s.Step()
		Expect(err).ToNot(HaveOccurred())

		Expect(tracer.samples).To(HaveLen(2))
		Expect(tracer.samples[0].Tick).To(Equal(sim.VTimeInTick(10)))
		Expect(tracer.samples[0].WireID).To(Equal(sim.ID(0)))
		Expect(tracer.samples[0].WireName).To(Equal("a"))
		Expect(tracer.samples[1].WireName).To(Equal("b"))

		_, err = s.Step()
		Expect(err).ToNot(HaveOccurred())

		Expect(tracer.samples).To(HaveLen(4))
		Expect(tracer.samples[2].Tick).To(Equal(sim.VTimeInTick(20)))
	})

	It("should skip steps that fail", func() {
		s.RegisterElementPhase(failingPhase{})

		_, err := s.Step()
		Expect(err).To(HaveOccurred())

		Expect(tracer.samples).To(BeEmpty())
	})
})
