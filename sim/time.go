package sim

import "math"

// VTimeInTick is simulated time measured in integer ticks.
type VTimeInTick uint64

// MaxVTimeInTick is the largest representable tick count.
const MaxVTimeInTick = VTimeInTick(math.MaxUint64)

// TimeTeller can be queried for the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInTick
}
