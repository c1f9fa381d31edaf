// Package monitoring turns a replay into a web server so that the page table
// can be watched and the replay controlled from a browser.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/pagesim/monitoring/web"
	"github.com/sarchlab/pagesim/pagetable"
	"github.com/sarchlab/pagesim/replay"
	"github.com/sarchlab/pagesim/tracing"
)

// A Controller is a replay that the monitor can inspect and drive.
type Controller interface {
	Step() (replay.Step, bool)
	Pause()
	Continue()
	Paused() bool
	Position() int
	Len() int
	Done() bool
	Snapshot() pagetable.Snapshot
}

// Monitor serves the state of a replay over HTTP.
type Monitor struct {
	controller Controller
	stats      *tracing.StatsCounter
	portNumber int

	lastStepLock sync.Mutex
	lastStep     *replay.Step
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterController registers the replay to monitor.
func (m *Monitor) RegisterController(c Controller) {
	m.controller = c
}

// RegisterStatsCounter registers the counter reported by /api/stats.
func (m *Monitor) RegisterStatsCounter(s *tracing.StatsCounter) {
	m.stats = s
}

// Accept remembers the latest step. It makes the Monitor a replay.Sink.
func (m *Monitor) Accept(step replay.Step) {
	m.lastStepLock.Lock()
	defer m.lastStepLock.Unlock()

	m.lastStep = &step
}

// Router creates the HTTP handler of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.continueReplay)
	r.HandleFunc("/api/step", m.step)
	r.HandleFunc("/api/progress", m.progress)
	r.HandleFunc("/api/pagetable", m.pageTable)
	r.HandleFunc("/api/pagetable/{page:[0-9]+}", m.pageEntry)
	r.HandleFunc("/api/stats", m.listStats)
	r.HandleFunc("/api/engine", m.engineDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	router := m.Router()
	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return url, nil
}

// OpenBrowser opens the monitor page in the default browser.
func (m *Monitor) OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.controller.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueReplay(w http.ResponseWriter, _ *http.Request) {
	m.controller.Continue()
	w.WriteHeader(http.StatusOK)
}

type stepRsp struct {
	Index     int                 `json:"index"`
	Reference pagetable.Reference `json:"reference"`
	Outcome   *pagetable.Outcome  `json:"outcome,omitempty"`
	Error     string              `json:"error,omitempty"`
	Message   string              `json:"message"`
}

func stepResponse(s replay.Step) stepRsp {
	rsp := stepRsp{
		Index:     s.Index,
		Reference: s.Reference,
		Message:   s.String(),
	}

	if s.Err != nil {
		rsp.Error = s.Err.Error()
	} else {
		outcome := s.Outcome
		rsp.Outcome = &outcome
	}

	return rsp
}

func (m *Monitor) step(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s, ok := m.controller.Step()
	if !ok {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, "the trace has been fully replayed")

		return
	}

	writeJSON(w, stepResponse(s))
}

type progressRsp struct {
	Position    int    `json:"position"`
	Total       int    `json:"total"`
	Paused      bool   `json:"paused"`
	Done        bool   `json:"done"`
	LastMessage string `json:"last_message,omitempty"`
}

func (m *Monitor) progress(w http.ResponseWriter, _ *http.Request) {
	rsp := progressRsp{
		Position: m.controller.Position(),
		Total:    m.controller.Len(),
		Paused:   m.controller.Paused(),
		Done:     m.controller.Done(),
	}

	m.lastStepLock.Lock()
	if m.lastStep != nil {
		rsp.LastMessage = m.lastStep.String()
	}
	m.lastStepLock.Unlock()

	writeJSON(w, rsp)
}

func (m *Monitor) pageTable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.controller.Snapshot())
}

func (m *Monitor) pageEntry(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	entry, found := m.controller.Snapshot().Entry(page)
	if !found {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "page %d not found", page)

		return
	}

	writeJSON(w, entry)
}

type statsRsp struct {
	tracing.Stats
	HitRatio float64 `json:"hit_ratio"`
}

func (m *Monitor) listStats(w http.ResponseWriter, _ *http.Request) {
	if m.stats == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	stats := m.stats.Stats()
	writeJSON(w, statsRsp{Stats: stats, HitRatio: stats.HitRatio()})
}

func (m *Monitor) engineDetails(w http.ResponseWriter, r *http.Request) {
	depth := 2
	if d := r.URL.Query().Get("depth"); d != "" {
		var err error
		depth, err = strconv.Atoi(d)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: %s", err)

			return
		}
	}

	snapshot := m.controller.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(depth)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
