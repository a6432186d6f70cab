package tracing

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

var _ Tracer = (*CSVTraceWriter)(nil)

// CSVTraceWriter is a level tracer that stores the samples in a CSV file.
type CSVTraceWriter struct {
	path string
	file *os.File

	samples    []LevelSample
	bufferSize int
}

// NewCSVTraceWriter creates a new CSVTraceWriter.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the tracing csv file. It refuses to overwrite a file that
// already exists.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "relay_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "Tick, WireID, WireName, Pull, Level\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// RecordSample buffers a sample to be written to the CSV file.
func (t *CSVTraceWriter) RecordSample(s LevelSample) {
	t.samples = append(t.samples, s)
	if len(t.samples) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered samples to the CSV file.
func (t *CSVTraceWriter) Flush() {
	for _, s := range t.samples {
		fmt.Fprintf(t.file, "%d, %d, %s, %s, %.10f\n",
			s.Tick,
			s.WireID,
			s.WireName,
			s.Pull,
			s.Level,
		)
	}

	t.samples = nil
}
