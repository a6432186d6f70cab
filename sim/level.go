package sim

// Level is the measurable signal level of a wire, clamped to [0.0, 1.0].
type Level float64

// NewLevel creates a Level from a raw float. Values below 0 clamp to 0 and
// values above 1 clamp to 1.
func NewLevel(v float64) Level {
	if v < 0.0 {
		return Level(0.0)
	}

	if v > 1.0 {
		return Level(1.0)
	}

	return Level(v)
}
