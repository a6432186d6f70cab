package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voltlab/relay/analysis"
	"github.com/voltlab/relay/sim"
)

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	return rr
}

var _ = Describe("Monitor", func() {
	var (
		s      *sim.Simulation
		m      *Monitor
		router http.Handler
	)

	BeforeEach(func() {
		s = sim.NewSimulation(10)

		a := sim.NewWire("a", sim.PullUp)
		a.SetTimeConstant(5)
		_, err := s.AddWire(a)
		Expect(err).ToNot(HaveOccurred())

		b := sim.NewWire("b", sim.PullDown)
		b.SetTimeConstant(5)
		_, err = s.AddWire(b)
		Expect(err).ToNot(HaveOccurred())

		c := sim.NewWire("c", sim.PullNone)
		_, err = s.AddWire(c)
		Expect(err).ToNot(HaveOccurred())

		m = NewMonitor()
		m.RegisterSimulation(s)
		router = m.buildRouter()
	})

	It("should report the current time", func() {
		rr := get(router, "/api/now")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(Equal(`{"now":0}`))
	})

	It("should step the simulation", func() {
		rr := get(router, "/api/step")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(Equal(`{"now":10,"result":"Continuing"}`))
		Expect(s.CurrentTime()).To(Equal(sim.VTimeInTick(10)))
	})

	It("should pause and continue the simulation", func() {
		Expect(get(router, "/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get(router, "/api/continue").Code).To(Equal(http.StatusOK))
		Expect(get(router, "/api/step").Code).To(Equal(http.StatusOK))
	})

	It("should list wires", func() {
		rr := get(router, "/api/wires")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(Equal(
			`[{"id":0,"name":"a"},{"id":1,"name":"b"},{"id":2,"name":"c"}]`))
	})

	It("should serialize one wire", func() {
		rr := get(router, "/api/wire/0")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.Len()).ToNot(BeZero())
	})

	It("should return 404 for an unknown wire", func() {
		rr := get(router, "/api/wire/99")

		Expect(rr.Code).To(Equal(http.StatusNotFound))
		Expect(rr.Body.String()).To(Equal("Wire not found"))
	})

	It("should return 400 for a malformed wire id", func() {
		rr := get(router, "/api/wire/abc")

		Expect(rr.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list levels sorted by level", func() {
		rr := get(router, "/api/levels")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(Equal(
			`[{"id":0,"wire":"a","pull":"Up","level":1.0000000000},` +
				`{"id":2,"wire":"c","pull":"None","level":0.5000000000},` +
				`{"id":1,"wire":"b","pull":"Down","level":0.0000000000}]`))
	})

	It("should page levels sorted by name", func() {
		rr := get(router, "/api/levels?sort=name&limit=1&offset=1")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(Equal(
			`[{"id":1,"wire":"b","pull":"Down","level":0.0000000000}]`))
	})

	It("should reject an unknown sort method", func() {
		rr := get(router, "/api/levels?sort=bogus")

		Expect(rr.Code).To(Equal(http.StatusBadRequest))
	})

	It("should describe the worker pool", func() {
		rr := get(router, "/api/pool")

		Expect(rr.Code).To(Equal(http.StatusOK))

		rsp := poolRsp{}
		Expect(json.Unmarshal(rr.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Workers).ToNot(BeEmpty())
		Expect(rsp.Busy).To(Equal(0))
		Expect(rsp.Queued).To(Equal(0))
	})

	It("should list progress bars", func() {
		m.CreateProgressBar("demo", 100)

		rr := get(router, "/api/progress")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(ContainSubstring(`"name":"demo"`))
	})

	It("should remove completed progress bars", func() {
		bar1 := m.CreateProgressBar("one", 10)
		m.CreateProgressBar("two", 10)

		m.CompleteProgressBar(bar1)

		Expect(m.progressBars).To(HaveLen(1))
		Expect(m.progressBars[0].Name).To(Equal("two"))
	})

	It("should track steps on a progress bar", func() {
		bar := m.TrackSteps(s, "steps", 5)

		_, err := s.Step()
		Expect(err).ToNot(HaveOccurred())
		_, err = s.Step()
		Expect(err).ToNot(HaveOccurred())

		Expect(bar.Finished).To(Equal(uint64(2)))
		Expect(bar.InProgress).To(Equal(uint64(0)))
	})

	It("should serve metrics when a collector is registered", func() {
		collector, err := analysis.NewStepCollector(prometheus.NewRegistry())
		Expect(err).ToNot(HaveOccurred())

		m.RegisterStepCollector(collector)
		router = m.buildRouter()

		rr := get(router, "/metrics")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(ContainSubstring("relay_steps_total"))
	})
})
