package sim

import (
	"fmt"
	"sync"
	"time"
)

// DefaultPhaseTimeout bounds how long a step phase waits for each worker
// result before the phase is abandoned with an error.
const DefaultPhaseTimeout = 1000 * time.Millisecond

// Names of the phases that make up one step, in execution order.
const (
	PhaseInput   = "input"
	PhaseElement = "element"
	PhaseWire    = "wire"
)

// A WireStepResult is the tagged rendezvous message a worker sends back
// after stepping one wire. The ID is the slot the wire was checked out of;
// checkin always happens at this ID, whatever order results arrive in.
type WireStepResult struct {
	ID     ID
	Wire   *Wire
	Result SimResult
	Err    error
}

// A PhaseRecord describes one completed phase to hooks registered at
// HookPosPhaseEnd.
type PhaseRecord struct {
	Phase    string
	Result   SimResult
	Err      error
	Duration time.Duration
}

// A StepRecord describes one completed step to hooks registered at
// HookPosStepEnd. Now is the simulated time after the step.
type StepRecord struct {
	Now    VTimeInTick
	Result SimResult
	Err    error
}

// A Simulation advances a circuit through fixed time steps. Each step runs
// the input phase, the element phase, and the wire update phase in order,
// then moves simulated time forward by the interval exactly once, whatever
// the phases returned.
//
// The wire update phase runs concurrently. Every wire is checked out of
// the store, stepped on the worker pool, and checked back in at its own ID
// as results arrive. The phase fails if any result does not arrive within
// the phase timeout. Wires still checked out at that point stay out, and
// tasks already on the pool are not cancelled, so a failed phase leaves
// the store incomplete for all later steps.
//
// Simulations are not safe for concurrent mutation: AddWire and Step must
// come from one goroutine at a time. Pause and Continue may be called from
// anywhere.
type Simulation struct {
	HookableBase

	interval VTimeInTick
	now      VTimeInTick
	nowLock  sync.RWMutex

	poolSize     int
	pool         *workerPool
	results      chan WireStepResult
	phaseTimeout time.Duration

	wires *Store[*Wire]

	inputPhase   Phase
	elementPhase Phase

	pauseLock sync.Mutex
}

var _ Hookable = (*Simulation)(nil)
var _ TimeTeller = (*Simulation)(nil)

// NewSimulation creates an empty Simulation that advances time by interval
// ticks per step. A zero interval is a programming error and panics.
func NewSimulation(interval VTimeInTick) *Simulation {
	if interval == 0 {
		panic("sim: simulation interval must not be zero")
	}

	return &Simulation{
		interval:     interval,
		results:      make(chan WireStepResult),
		phaseTimeout: DefaultPhaseTimeout,
		wires:        NewStore[*Wire](),
		inputPhase:   noopPhase{},
		elementPhase: noopPhase{},
	}
}

// Interval returns the ticks the simulation advances per step.
func (s *Simulation) Interval() VTimeInTick {
	return s.interval
}

// CurrentTime returns the present simulated time.
func (s *Simulation) CurrentTime() VTimeInTick {
	s.nowLock.RLock()
	defer s.nowLock.RUnlock()
	return s.now
}

// PhaseTimeout returns the maximum time a step phase waits for each worker
// result.
func (s *Simulation) PhaseTimeout() time.Duration {
	return s.phaseTimeout
}

// SetPhaseTimeout changes the maximum time a step phase waits for each
// worker result.
func (s *Simulation) SetPhaseTimeout(timeout time.Duration) {
	s.phaseTimeout = timeout
}

// SetPoolSize sets the number of pool workers. The pool starts at the
// first step; resizing it afterwards is a programming error and panics.
// A non-positive size means one worker per CPU.
func (s *Simulation) SetPoolSize(workers int) {
	if s.pool != nil {
		panic("sim: worker pool is already running")
	}

	s.poolSize = workers
}

// PoolWorkerIDs returns the identity of every worker in the pool, starting
// the pool if it has not run yet.
func (s *Simulation) PoolWorkerIDs() []string {
	return s.ensurePool().WorkerIDs()
}

// PoolLoad reports how many workers are running a task and how many tasks
// are waiting for a worker.
func (s *Simulation) PoolLoad() (busy, queued int) {
	if s.pool == nil {
		return 0, 0
	}

	return s.pool.Busy(), s.pool.Queued()
}

// IsEmpty reports whether the simulation has no components.
func (s *Simulation) IsEmpty() bool {
	return s.wires.Len() == 0
}

// WireCount returns the number of wires added so far.
func (s *Simulation) WireCount() int {
	return s.wires.Len()
}

// AddWire hands a wire over to the simulation. The returned ID is the
// wire's permanent slot and is also assigned to the wire itself. Adding
// the same wire twice fails with ErrAlreadyAssigned.
func (s *Simulation) AddWire(w *Wire) (ID, error) {
	if _, err := w.ID(); err == nil {
		return 0, fmt.Errorf("%w: wire %q was added before", ErrAlreadyAssigned, w.Name())
	}

	id := s.wires.Add(w)
	if err := w.AssignID(id); err != nil {
		return 0, err
	}

	s.growResults()

	return id, nil
}

// Wire looks up a wire without taking ownership. During a wire update
// phase, and after a failed one, checked-out wires are not visible.
func (s *Simulation) Wire(id ID) (*Wire, error) {
	w, ok := s.wires.Inspect(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrWireNotFound, id)
	}

	return w, nil
}

// Audit verifies that every wire is resting in its slot. It fails with
// ErrIncompleteAudit after a wire update phase leaked checkouts.
func (s *Simulation) Audit() error {
	return s.wires.Audit()
}

// RegisterInputPhase replaces the no-op input phase stub.
func (s *Simulation) RegisterInputPhase(p Phase) {
	s.inputPhase = p
}

// RegisterElementPhase replaces the no-op element phase stub.
func (s *Simulation) RegisterElementPhase(p Phase) {
	s.elementPhase = p
}

// Pause prevents further steps from starting until Continue is called. A
// step already in progress completes first.
func (s *Simulation) Pause() {
	s.pauseLock.Lock()
}

// Continue resumes stepping after a Pause.
func (s *Simulation) Continue() {
	s.pauseLock.Unlock()
}

// Run steps the simulation until some phase reports Finished or fails. An
// empty simulation finishes trivially, without advancing time.
func (s *Simulation) Run() (SimResult, error) {
	if s.IsEmpty() {
		return Finished, nil
	}

	for {
		result, err := s.Step()
		if err != nil || result != Continuing {
			return result, err
		}
	}
}

// Step advances the simulation by one time step. Later phases are skipped
// once a phase fails or finishes the run, but time moves forward by the
// interval exactly once either way.
func (s *Simulation) Step() (SimResult, error) {
	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosStepStart, Item: s.CurrentTime()})

	result, err := s.runPhase(PhaseInput, s.inputPhase.Step)
	if err == nil && result == Continuing {
		result, err = s.runPhase(PhaseElement, s.elementPhase.Step)
	}
	if err == nil && result == Continuing {
		result, err = s.runPhase(PhaseWire, s.stepWires)
	}

	s.advanceTime()

	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosStepEnd,
		Item:   StepRecord{Now: s.CurrentTime(), Result: result, Err: err},
	})

	return result, err
}

func (s *Simulation) advanceTime() {
	s.nowLock.Lock()
	s.now += s.interval
	s.nowLock.Unlock()
}

func (s *Simulation) runPhase(
	name string,
	phase func(VTimeInTick) (SimResult, error),
) (SimResult, error) {
	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosPhaseStart, Item: name})

	start := time.Now()
	result, err := phase(s.interval)

	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosPhaseEnd,
		Item: PhaseRecord{
			Phase:    name,
			Result:   result,
			Err:      err,
			Duration: time.Since(start),
		},
	})

	return result, err
}

// stepWires runs the wire update phase: check out every wire, step each of
// them on the pool, rendezvous on exactly as many results as dispatched,
// and check every wire back in at the slot it left.
func (s *Simulation) stepWires(deltaT VTimeInTick) (SimResult, error) {
	pool := s.ensurePool()
	results := s.results

	dispatched := 0
	for id := ID(0); id < ID(s.wires.Len()); id++ {
		wire, ok := s.wires.Checkout(id)
		if !ok {
			return Continuing, fmt.Errorf("%w: wire %d is not in its slot",
				ErrInvariant, id)
		}

		r := WireStepResult{ID: id, Wire: wire, Result: Continuing}
		pool.Submit(func() {
			r.Wire.Step(deltaT)
			results <- r
		})
		dispatched++
	}

	finished := false
	for i := 0; i < dispatched; i++ {
		r, err := s.receiveResult(results)
		if err != nil {
			return Continuing, err
		}

		if r.Err != nil {
			return Continuing, fmt.Errorf("sim: step of wire %d failed: %w", r.ID, r.Err)
		}

		if err := s.wires.Checkin(r.ID, r.Wire); err != nil {
			return Continuing, fmt.Errorf("%w: wire %d came back to a bad slot: %v",
				ErrInvariant, r.ID, err)
		}

		s.InvokeHook(HookCtx{Domain: s, Pos: HookPosWireStepped, Item: r})

		finished = finished || r.Result == Finished
	}

	if finished {
		return Finished, nil
	}

	return Continuing, nil
}

// receiveResult waits for the next worker result, bounded by the phase
// timeout.
func (s *Simulation) receiveResult(results <-chan WireStepResult) (WireStepResult, error) {
	select {
	case r, ok := <-results:
		if !ok {
			return WireStepResult{}, ErrDisconnected
		}
		return r, nil
	case <-time.After(s.phaseTimeout):
		return WireStepResult{}, ErrPhaseTimeout
	}
}

func (s *Simulation) ensurePool() *workerPool {
	if s.pool == nil {
		s.pool = newWorkerPool(s.poolSize)
	}

	return s.pool
}

// growResults keeps the rendezvous channel able to buffer one result per
// wire, so workers left behind by an abandoned phase finish their sends
// instead of blocking forever. Results queued in a replaced channel are
// never received; the abandoning phase already reported those wires as
// leaked.
func (s *Simulation) growResults() {
	if cap(s.results) >= s.wires.Len() {
		return
	}

	capacity := s.wires.Len() * 2
	s.results = make(chan WireStepResult, capacity)
}
