package sim

import "errors"

// Errors reported by the simulation core. Errors wrapping these sentinels
// carry the concrete ids and names involved.
var (
	// ErrInvalidCheckin reports a checkin to a slot that is occupied or
	// was never allocated.
	ErrInvalidCheckin = errors.New("sim: checkin to an occupied or unallocated slot")

	// ErrIncompleteAudit reports that an audit found at least one item
	// still checked out.
	ErrIncompleteAudit = errors.New("sim: audit found items still checked out")

	// ErrAlreadyAssigned reports a second id assignment to a wire.
	ErrAlreadyAssigned = errors.New("sim: wire already has an assigned id")

	// ErrUnassigned reports an id query on a wire that was never added to
	// a simulation.
	ErrUnassigned = errors.New("sim: wire has no assigned id")

	// ErrWireNotFound reports a lookup of an id that is out of range or
	// whose wire is currently checked out.
	ErrWireNotFound = errors.New("sim: no wire found for the given id")

	// ErrPhaseTimeout reports that a step phase did not hear back from a
	// worker within the phase timeout.
	ErrPhaseTimeout = errors.New("sim: timed out waiting for step phase to complete")

	// ErrDisconnected reports that the result channel closed while a step
	// phase was waiting on it.
	ErrDisconnected = errors.New("sim: disconnected while waiting for step phase to complete")

	// ErrInvariant reports an internal inconsistency that the simulation
	// cannot recover from.
	ErrInvariant = errors.New("sim: simulation invariant violated")
)
