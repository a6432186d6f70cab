package sim

import "log"

// A LogHook is a hook that is responsible for recording information from
// the simulation.
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks.
type LogHookBase struct {
	*log.Logger
}

// StepLogger is a hook that prints step and phase outcomes.
type StepLogger struct {
	LogHookBase
}

// NewStepLogger returns a new StepLogger which will write into the logger.
func NewStepLogger(logger *log.Logger) *StepLogger {
	h := new(StepLogger)
	h.Logger = logger
	return h
}

// Func writes the step and phase information into the logger.
func (h *StepLogger) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosStepStart:
		h.Printf("t=%d, step start", ctx.Item.(VTimeInTick))
	case HookPosPhaseEnd:
		rec := ctx.Item.(PhaseRecord)
		if rec.Err != nil {
			h.Printf("phase %s failed after %s: %v", rec.Phase, rec.Duration, rec.Err)
			return
		}
		h.Printf("phase %s, %s, %s", rec.Phase, rec.Result, rec.Duration)
	case HookPosStepEnd:
		rec := ctx.Item.(StepRecord)
		h.Printf("t=%d, step end, %s", rec.Now, rec.Result)
	}
}
