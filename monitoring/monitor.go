// Package monitoring turns a running simulation into a web server so it can
// be inspected and controlled from outside the process.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/voltlab/relay/analysis"
	"github.com/voltlab/relay/sim"
)

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	simulation *sim.Simulation
	collector  *analysis.StepCollector
	portNumber int
	addr       string

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulation registers the simulation to be monitored.
func (m *Monitor) RegisterSimulation(s *sim.Simulation) {
	m.simulation = s
}

// RegisterStepCollector adds a /metrics endpoint serving the collector's
// Prometheus metrics.
func (m *Monitor) RegisterStepCollector(c *analysis.StepCollector) {
	m.collector = c
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars)-1)
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Addr returns the base URL of the monitoring server. It is empty until
// StartServer has run.
func (m *Monitor) Addr() string {
	return m.addr
}

// StartServer starts the monitor as a web server, on the configured port if
// one was given.
func (m *Monitor) StartServer() {
	r := m.buildRouter()
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	m.addr = fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.addr)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

func (m *Monitor) buildRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseSimulation)
	r.HandleFunc("/api/continue", m.continueSimulation)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/run", m.run)
	r.HandleFunc("/api/step", m.step)
	r.HandleFunc("/api/wires", m.listWires)
	r.HandleFunc("/api/wire/{id}", m.listWireDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/levels", m.listLevels)
	r.HandleFunc("/api/pool", m.listPool)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.collector != nil {
		r.Handle("/metrics", m.collector.Handler())
	}

	return r
}

func (m *Monitor) pauseSimulation(w http.ResponseWriter, _ *http.Request) {
	m.simulation.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueSimulation(w http.ResponseWriter, _ *http.Request) {
	m.simulation.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.simulation.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%d}", now)
}

func (m *Monitor) run(_ http.ResponseWriter, _ *http.Request) {
	go func() {
		_, err := m.simulation.Run()
		if err != nil {
			panic(err)
		}
	}()
}

func (m *Monitor) step(w http.ResponseWriter, _ *http.Request) {
	result, err := m.simulation.Step()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	fmt.Fprintf(w, "{\"now\":%d,\"result\":%q}",
		m.simulation.CurrentTime(), result.String())
}

func (m *Monitor) listWires(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	count := m.simulation.WireCount()
	first := true
	for id := 0; id < count; id++ {
		wire, err := m.simulation.Wire(sim.ID(id))
		if err != nil {
			continue
		}

		if !first {
			fmt.Fprint(w, ",")
		}
		first = false

		fmt.Fprintf(w, "{\"id\":%d,\"name\":%q}", id, wire.Name())
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) listWireDetails(w http.ResponseWriter, r *http.Request) {
	wire := m.findWireOr404(w, mux.Vars(r)["id"])
	if wire == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(wire)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	WireID    int    `json:"wire_id,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		dieOnErr(err)
	}

	wire := m.findWireOr404(w, strconv.Itoa(req.WireID))
	if wire == nil {
		return
	}

	fields := strings.Split(req.FieldName, ".")

	serializer := goseth.NewSerializer()
	serializer.SetRoot(wire)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(fields)
	dieOnErr(err)

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type wireLevel struct {
	id    int
	name  string
	pull  sim.Pull
	level sim.Level
}

func (m *Monitor) listLevels(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := m.levelsParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	levels := m.sortAndSelectLevels(sortMethod, limit, offset)

	fmt.Fprint(w, "[")
	for i, l := range levels {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "{\"id\":%d,\"wire\":%q,\"pull\":%q,\"level\":%.10f}",
			l.id, l.name, l.pull.String(), l.level)
	}
	fmt.Fprint(w, "]")
}

func (*Monitor) levelsParseParams(
	r *http.Request,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "level"
	}
	if sortMethod != "level" && sortMethod != "name" {
		errStr := fmt.Sprintf(
			"Invalid sort method: %s. Allowed values are `level` and `name`",
			sortMethod)
		return "", 0, 0, errors.New(errStr)
	}

	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "0"
	}
	limitNumber, err := strconv.Atoi(limitStr)
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		offsetStr = "0"
	}
	offsetNumber, err := strconv.Atoi(offsetStr)
	if err != nil {
		return sortMethod, limitNumber, 0, err
	}

	return sortMethod, limitNumber, offsetNumber, nil
}

func (m *Monitor) sortAndSelectLevels(
	sortMethod string,
	limit, offset int,
) []wireLevel {
	count := m.simulation.WireCount()
	levels := make([]wireLevel, 0, count)
	for id := 0; id < count; id++ {
		wire, err := m.simulation.Wire(sim.ID(id))
		if err != nil {
			continue
		}

		levels = append(levels, wireLevel{
			id:    id,
			name:  wire.Name(),
			pull:  wire.Pull(),
			level: wire.Measure(),
		})
	}

	switch sortMethod {
	case "level":
		sort.Slice(levels, func(i, j int) bool {
			if levels[i].level != levels[j].level {
				return levels[i].level > levels[j].level
			}
			return levels[i].name < levels[j].name
		})
	case "name":
		sort.Slice(levels, func(i, j int) bool {
			return levels[i].name < levels[j].name
		})
	default:
		panic("Invalid sort method " + sortMethod)
	}

	if offset > len(levels) {
		offset = len(levels)
	}
	levels = levels[offset:]

	if limit > 0 && limit < len(levels) {
		levels = levels[:limit]
	}

	return levels
}

type poolRsp struct {
	Workers []string `json:"workers"`
	Busy    int      `json:"busy"`
	Queued  int      `json:"queued"`
}

func (m *Monitor) listPool(w http.ResponseWriter, _ *http.Request) {
	busy, queued := m.simulation.PoolLoad()
	rsp := poolRsp{
		Workers: m.simulation.PoolWorkerIDs(),
		Busy:    busy,
		Queued:  queued,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) findWireOr404(w http.ResponseWriter, idString string) *sim.Wire {
	id, err := strconv.Atoi(idString)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return nil
	}

	wire, err := m.simulation.Wire(sim.ID(id))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Wire not found"))
		dieOnErr(err)
		return nil
	}

	return wire
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bytes, err := json.Marshal(m.progressBars)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
