package simulation

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/voltlab/relay/datarecording"
	"github.com/voltlab/relay/sim"
)

type levelRow struct {
	Tick     uint64
	WireID   int
	WireName string
	Pull     string
	Level    float64
}

var _ = Describe("Simulation", func() {
	var (
		dir        string
		simulation *Simulation
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		simulation = MakeBuilder().
			WithoutMonitoring().
			WithInterval(10).
			WithOutputFileName(filepath.Join(dir, "session")).
			Build()
	})

	AfterEach(func() {
		simulation.Terminate()
	})

	It("should register a wire", func() {
		w := sim.NewWire("node0", sim.PullUp)

		id, err := simulation.AddWire(w)

		Expect(err).ToNot(HaveOccurred())
		Expect(id).To(Equal(sim.ID(0)))

		found, err := simulation.GetWireByName("node0")
		Expect(err).ToNot(HaveOccurred())
		Expect(found).To(BeIdenticalTo(w))
	})

	It("should refuse duplicate wire names", func() {
		_, err := simulation.AddWire(sim.NewWire("node0", sim.PullUp))
		Expect(err).ToNot(HaveOccurred())

		Expect(func() {
			_, _ = simulation.AddWire(sim.NewWire("node0", sim.PullDown))
		}).To(Panic())
	})

	It("should fail to find unknown wires", func() {
		_, err := simulation.GetWireByName("nowhere")

		Expect(err).To(MatchError(sim.ErrWireNotFound))
	})

	It("should step the core simulation", func() {
		_, err := simulation.AddWire(sim.NewWire("node0", sim.PullUp))
		Expect(err).ToNot(HaveOccurred())

		_, err = simulation.GetSimulation().Step()
		Expect(err).ToNot(HaveOccurred())

		Expect(simulation.GetSimulation().CurrentTime()).
			To(Equal(sim.VTimeInTick(10)))
	})

	It("should panic when the monitor port is set without monitoring", func() {
		Expect(func() {
			MakeBuilder().
				WithoutMonitoring().
				WithMonitorPort(8080).
				Build()
		}).To(Panic())
	})

	It("should panic on a zero interval", func() {
		Expect(func() {
			MakeBuilder().
				WithoutMonitoring().
				WithInterval(0).
				Build()
		}).To(Panic())
	})

	It("should record wire levels when tracing is enabled", func() {
		traced := MakeBuilder().
			WithoutMonitoring().
			WithInterval(10).
			WithLevelTracing().
			WithOutputFileName(filepath.Join(dir, "traced")).
			Build()

		w := sim.NewWire("node0", sim.PullUp)
		w.SetTimeConstant(5)
		_, err := traced.AddWire(w)
		Expect(err).ToNot(HaveOccurred())

		for i := 0; i < 3; i++ {
			_, err = traced.GetSimulation().Step()
			Expect(err).ToNot(HaveOccurred())
		}

		traced.Terminate()

		reader := datarecording.NewSQLiteReader(filepath.Join(dir, "traced"))
		reader.Init()
		defer reader.Close()

		reader.MapTable("wire_levels", levelRow{})

		rows, total, err := reader.Query(
			context.Background(), "wire_levels", datarecording.QueryParams{
				OrderBy: "Tick ASC",
			})
		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(3))
		Expect(rows).To(HaveLen(3))

		first := rows[0].(*levelRow)
		Expect(first.Tick).To(Equal(uint64(10)))
		Expect(first.WireName).To(Equal("node0"))
		Expect(first.Pull).To(Equal("Up"))
	})

	It("should collect metrics when enabled", func() {
		metered := MakeBuilder().
			WithoutMonitoring().
			WithMetrics().
			WithInterval(10).
			WithOutputFileName(filepath.Join(dir, "metered")).
			Build()
		defer metered.Terminate()

		_, err := metered.AddWire(sim.NewWire("node0", sim.PullUp))
		Expect(err).ToNot(HaveOccurred())

		_, err = metered.GetSimulation().Step()
		Expect(err).ToNot(HaveOccurred())

		collector := metered.GetStepCollector()
		Expect(collector).ToNot(BeNil())
		Expect(testutil.ToFloat64(collector.Steps)).To(BeNumerically(">=", 1))
	})
})
