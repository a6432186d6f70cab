package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voltlab/relay/sim"
)

// recordingBackend captures DataRecorder calls without touching a database.
type recordingBackend struct {
	tables  map[string]any
	inserts []levelTableEntry
	flushes int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{tables: make(map[string]any)}
}

func (b *recordingBackend) CreateTable(tableName string, sampleEntry any) {
	b.tables[tableName] = sampleEntry
}

func (b *recordingBackend) InsertData(tableName string, entry any) {
	b.inserts = append(b.inserts, entry.(levelTableEntry))
}

func (b *recordingBackend) ListTables() []string {
	names := make([]string, 0, len(b.tables))
	for name := range b.tables {
		names = append(names, name)
	}

	return names
}

func (b *recordingBackend) Flush() {
	b.flushes++
}

var _ = Describe("DBTracer", func() {
	var (
		backend *recordingBackend
		tracer  *DBTracer
	)

	BeforeEach(func() {
		backend = newRecordingBackend()
		tracer = NewDBTracer(backend)
	})

	It("should create the wire level table up front", func() {
		Expect(backend.tables).To(HaveKey(wireLevelTable))
	})

	It("should store samples through the backend", func() {
		tracer.RecordSample(LevelSample{
			Tick:     10,
			WireID:   3,
			WireName: "node3",
			Pull:     sim.PullUp,
			Level:    0.25,
		})

		Expect(backend.inserts).To(HaveLen(1))
		Expect(backend.inserts[0]).To(Equal(levelTableEntry{
			Tick:     10,
			WireID:   3,
			WireName: "node3",
			Pull:     "Up",
			Level:    0.25,
		}))
	})

	It("should drop samples outside the time range", func() {
		tracer.SetTimeRange(100, 200)

		tracer.RecordSample(LevelSample{Tick: 99})
		tracer.RecordSample(LevelSample{Tick: 100})
		tracer.RecordSample(LevelSample{Tick: 200})
		tracer.RecordSample(LevelSample{Tick: 201})

		Expect(backend.inserts).To(HaveLen(2))
		Expect(backend.inserts[0].Tick).To(Equal(uint64(100)))
		Expect(backend.inserts[1].Tick).To(Equal(uint64(200)))
	})
})
