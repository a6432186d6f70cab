package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Simulation", func() {
	var (
		mockCtrl *gomock.Controller
		s        *Simulation
		input    *MockPhase
		element  *MockPhase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		s = NewSimulation(10)
		input = NewMockPhase(mockCtrl)
		element = NewMockPhase(mockCtrl)
		s.RegisterInputPhase(input)
		s.RegisterElementPhase(element)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should refuse a zero interval", func() {
		Expect(func() { NewSimulation(0) }).To(Panic())
	})

	It("should run the phases of a step in order", func() {
		gomock.InOrder(
			input.EXPECT().Step(VTimeInTick(10)).Return(Continuing, nil),
			element.EXPECT().Step(VTimeInTick(10)).Return(Continuing, nil),
		)

		result, err := s.Step()

		Expect(err).ToNot(HaveOccurred())
		Expect(result).To(Equal(Continuing))
		Expect(s.CurrentTime()).To(Equal(VTimeInTick(10)))
	})

	It("should skip later phases when a phase finishes the run", func() {
		input.EXPECT().Step(VTimeInTick(10)).Return(Finished, nil)

		result, err := s.Step()

		Expect(err).ToNot(HaveOccurred())
		Expect(result).To(Equal(Finished))
		Expect(s.CurrentTime()).To(Equal(VTimeInTick(10)))
	})

	It("should skip later phases when a phase fails, but still advance time", func() {
		stepErr := errors.New("sampler broke")
		input.EXPECT().Step(VTimeInTick(10)).Return(Continuing, stepErr)

		result, err := s.Step()

		Expect(err).To(MatchError(stepErr))
		Expect(result).To(Equal(Continuing))
		Expect(s.CurrentTime()).To(Equal(VTimeInTick(10)))
	})

	It("should not step wires once the element phase finishes the run", func() {
		w := NewWire("w0", PullNone)
		w.SetTimeConstant(5)
		w.SetPull(PullUp)
		_, err := s.AddWire(w)
		Expect(err).ToNot(HaveOccurred())

		input.EXPECT().Step(gomock.Any()).Return(Continuing, nil)
		element.EXPECT().Step(gomock.Any()).Return(Finished, nil)

		result, err := s.Step()

		Expect(err).ToNot(HaveOccurred())
		Expect(result).To(Equal(Finished))
		Expect(w.Measure()).To(Equal(NewLevel(0.5)))
	})

	It("should run until the element phase declares the simulation finished", func() {
		w := NewWire("w0", PullUp)
		_, err := s.AddWire(w)
		Expect(err).ToNot(HaveOccurred())

		input.EXPECT().Step(VTimeInTick(10)).Return(Continuing, nil).Times(3)
		element.EXPECT().Step(VTimeInTick(10)).Return(Continuing, nil).Times(2)
		element.EXPECT().Step(VTimeInTick(10)).Return(Finished, nil)

		result, err := s.Run()

		Expect(err).ToNot(HaveOccurred())
		Expect(result).To(Equal(Finished))
		Expect(s.CurrentTime()).To(Equal(VTimeInTick(30)))
	})

	It("should stop the run when a phase fails", func() {
		w := NewWire("w0", PullUp)
		_, err := s.AddWire(w)
		Expect(err).ToNot(HaveOccurred())

		stepErr := errors.New("evaluator broke")
		input.EXPECT().Step(VTimeInTick(10)).Return(Continuing, nil).Times(2)
		element.EXPECT().Step(VTimeInTick(10)).Return(Continuing, nil)
		element.EXPECT().Step(VTimeInTick(10)).Return(Continuing, stepErr)

		_, err = s.Run()

		Expect(err).To(MatchError(stepErr))
		Expect(s.CurrentTime()).To(Equal(VTimeInTick(20)))
	})

	It("should invoke hooks around steps and phases", func() {
		hook := NewMockHook(mockCtrl)
		s.AcceptHook(hook)

		input.EXPECT().Step(gomock.Any()).Return(Continuing, nil)
		element.EXPECT().Step(gomock.Any()).Return(Continuing, nil)

		var positions []string
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx HookCtx) { positions = append(positions, ctx.Pos.Name) }).
			AnyTimes()

		_, err := s.Step()

		Expect(err).ToNot(HaveOccurred())
		Expect(positions).To(Equal([]string{
			"StepStart",
			"PhaseStart", "PhaseEnd",
			"PhaseStart", "PhaseEnd",
			"PhaseStart", "PhaseEnd",
			"StepEnd",
		}))
	})
})
