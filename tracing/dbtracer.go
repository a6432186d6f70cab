package tracing

import (
	"sync"

	"github.com/tebeka/atexit"
	"github.com/voltlab/relay/datarecording"
	"github.com/voltlab/relay/sim"
)

// wireLevelTable is the table that holds one row per wire per step.
const wireLevelTable = "wire_levels"

type levelTableEntry struct {
	Tick     uint64
	WireID   int
	WireName string
	Pull     string
	Level    float64
}

var _ Tracer = (*DBTracer)(nil)

// DBTracer stores level samples into a database through a DataRecorder
// backend. Samples outside the configured time range are discarded.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	startTime sim.VTimeInTick
	endTime   sim.VTimeInTick
}

// NewDBTracer creates a DBTracer that writes into the given backend. The
// backend is flushed when the program terminates.
func NewDBTracer(backend datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{
		backend: backend,
		endTime: sim.MaxVTimeInTick,
	}

	backend.CreateTable(wireLevelTable, levelTableEntry{})
	atexit.Register(func() { backend.Flush() })

	return t
}

// SetTimeRange restricts recording to samples whose tick falls in
// [start, end].
func (t *DBTracer) SetTimeRange(start, end sim.VTimeInTick) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = start
	t.endTime = end
}

// RecordSample implements the Tracer interface.
func (t *DBTracer) RecordSample(s LevelSample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s.Tick < t.startTime || s.Tick > t.endTime {
		return
	}

	t.backend.InsertData(wireLevelTable, levelTableEntry{
		Tick:     uint64(s.Tick),
		WireID:   int(s.WireID),
		WireName: s.WireName,
		Pull:     s.Pull.String(),
		Level:    float64(s.Level),
	})
}
