package sim

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that
// a hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// HookPosStepStart is a hook position that triggers before a step's first
// phase runs.
var HookPosStepStart = &HookPos{Name: "StepStart"}

// HookPosStepEnd is a hook position that triggers after a step's phases
// have run and time has advanced.
var HookPosStepEnd = &HookPos{Name: "StepEnd"}

// HookPosPhaseStart is a hook position that triggers before each phase of
// a step.
var HookPosPhaseStart = &HookPos{Name: "PhaseStart"}

// HookPosPhaseEnd is a hook position that triggers after each phase of a
// step.
var HookPosPhaseEnd = &HookPos{Name: "PhaseEnd"}

// HookPosWireStepped is a hook position that triggers as each wire's
// result is checked back in during the wire update phase.
var HookPosWireStepped = &HookPos{Name: "WireStepped"}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	Hooks []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.Hooks = make([]Hook, 0)
	return h
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// InvokeHook triggers the register Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
