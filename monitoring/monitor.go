// Package monitoring serves the live state of DRAM bridges over HTTP.
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
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/dramifc/mem/dramifc"
	"github.com/sarchlab/dramifc/mem/writebuffer"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Bridge is what the monitor needs from a bridge.
type Bridge interface {
	Name() string
	Stats() dramifc.Stats
	WriteBufferEntries() []writebuffer.Entry
	Tick()
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the bridges.
type Monitor struct {
	lock       sync.Mutex
	bridges    []Bridge
	portNumber int
	listener   net.Listener

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
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

// RegisterBridge registers a bridge to be monitored.
func (m *Monitor) RegisterBridge(b Bridge) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, existing := range m.bridges {
		if existing.Name() == b.Name() {
			log.Panicf("bridge %s is already registered", b.Name())
		}
	}

	m.bridges = append(m.bridges, b)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/stats/{name}", m.listStats)
	r.HandleFunc("/api/writebuffer/{name}", m.listWriteBuffer)
	r.HandleFunc("/api/tick/{name}", m.tick).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(
		os.Stderr,
		"Monitoring simulation with http://localhost:%d\n",
		port)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Panic(err)
		}
	}()

	return port
}

// StopServer closes the listener opened by StartServer.
func (m *Monitor) StopServer() {
	if m.listener == nil {
		return
	}

	m.listener.Close()
	m.listener = nil
}

// OpenBrowser opens the stats page of the first bridge in the default
// browser.
func (m *Monitor) OpenBrowser(port int) error {
	url := fmt.Sprintf("http://localhost:%d/api/list_components", port)

	m.lock.Lock()
	if len(m.bridges) > 0 {
		url = fmt.Sprintf("http://localhost:%d/api/stats/%s",
			port, m.bridges[0].Name())
	}
	m.lock.Unlock()

	return browser.OpenURL(url)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	names := make([]string, 0, len(m.bridges))
	for _, b := range m.bridges {
		names = append(names, b.Name())
	}
	m.lock.Unlock()

	sort.Strings(names)

	writeJSON(w, names)
}

// bridgeSnapshot is the serialized view of a bridge.
type bridgeSnapshot struct {
	Name               string
	Stats              dramifc.Stats
	AvgReadLatency     float64
	WriteBufferEntries []writebuffer.Entry
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	b := m.findBridgeOr404(w, mux.Vars(r)["name"])
	if b == nil {
		return
	}

	stats := b.Stats()
	snapshot := &bridgeSnapshot{
		Name:               b.Name(),
		Stats:              stats,
		AvgReadLatency:     stats.AvgReadLatency(),
		WriteBufferEntries: b.WriteBufferEntries(),
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(snapshot)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listStats(w http.ResponseWriter, r *http.Request) {
	b := m.findBridgeOr404(w, mux.Vars(r)["name"])
	if b == nil {
		return
	}

	writeJSON(w, b.Stats())
}

func (m *Monitor) listWriteBuffer(w http.ResponseWriter, r *http.Request) {
	b := m.findBridgeOr404(w, mux.Vars(r)["name"])
	if b == nil {
		return
	}

	writeJSON(w, b.WriteBufferEntries())
}

func (m *Monitor) tick(w http.ResponseWriter, r *http.Request) {
	b := m.findBridgeOr404(w, mux.Vars(r)["name"])
	if b == nil {
		return
	}

	b.Tick()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) findBridgeOr404(w http.ResponseWriter, name string) Bridge {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, b := range m.bridges {
		if b.Name() == name {
			return b
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressBarView, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.view())
	}

	writeJSON(w, bars)
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

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
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
