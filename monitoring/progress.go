package monitoring

import (
	"sync"
	"time"

	"github.com/voltlab/relay/sim"
)

// A ProgressBar is a tracker of the progress of a long-running job.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds to the number of in-progress elements.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished adds a certain amount to the finished elements.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in-progress items by a
// certain amount and increases the finished items by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// TrackSteps creates a progress bar with one unit per simulation step and
// keeps it updated through the simulation's hooks.
func (m *Monitor) TrackSteps(
	s *sim.Simulation,
	name string,
	totalSteps uint64,
) *ProgressBar {
	bar := m.CreateProgressBar(name, totalSteps)
	s.AcceptHook(&stepProgressHook{bar: bar})

	return bar
}

type stepProgressHook struct {
	bar *ProgressBar
}

func (h *stepProgressHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosStepStart:
		h.bar.IncrementInProgress(1)
	case sim.HookPosStepEnd:
		h.bar.MoveInProgressToFinished(1)
	}
}
