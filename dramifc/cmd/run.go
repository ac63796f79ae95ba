package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rs/xid"
	"github.com/sarchlab/dramifc/datarecording"
	"github.com/sarchlab/dramifc/mem/dram"
	"github.com/sarchlab/dramifc/mem/dramifc"
	"github.com/sarchlab/dramifc/mem/trace"
	"github.com/sarchlab/dramifc/mem/traceagent"
	"github.com/sarchlab/dramifc/monitoring"
	"github.com/sarchlab/dramifc/sim"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run <trace-file>",
	Short: "Replay a memory trace through the bridge.",
	Long: "`run` replays a trace of `R <addr> <size>`, `W <addr> <size>` " +
		"and `T <ticks>` lines through the bridge and prints the processor " +
		"cycles spent. Use `-` to read the trace from stdin.",
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

func addRunFlags(f *pflag.FlagSet) {
	f.String("trace-db", "",
		"Record bridge activity into this SQLite database (without suffix)")
	f.Bool("text-trace", false, "Print bridge activity to stderr")
	f.Bool("dram-trace", false, "Print DRAM commands to stderr")
	f.Bool("poll-before-write", false,
		"Tick until the write buffer has room before each write")
	f.Bool("monitor", false, "Serve bridge statistics over HTTP")
	f.Int("monitor-port", 0, "Port of the monitoring server, 0 for any")
	f.Bool("open-browser", false, "Open the monitoring page")
	f.Bool("json", false, "Print the summary as JSON")
}

// summary is what a run reports.
type summary struct {
	RunID          string            `json:"run_id"`
	Trace          string            `json:"trace"`
	Ops            int               `json:"ops"`
	TotalCycles    uint64            `json:"total_cycles"`
	AvgReadLatency float64           `json:"avg_read_latency"`
	Agent          traceagent.Result `json:"agent"`
	Bridge         dramifc.Stats     `json:"bridge"`
}

type runOptions struct {
	traceDB         string
	textTrace       bool
	dramTrace       bool
	pollBeforeWrite bool
	monitor         bool
	monitorPort     int
	openBrowser     bool
	json            bool
}

func readRunOptions(cmd *cobra.Command) runOptions {
	f := cmd.Flags()
	o := runOptions{}

	o.traceDB, _ = f.GetString("trace-db")
	o.textTrace, _ = f.GetBool("text-trace")
	o.dramTrace, _ = f.GetBool("dram-trace")
	o.pollBeforeWrite, _ = f.GetBool("poll-before-write")
	o.monitor, _ = f.GetBool("monitor")
	o.monitorPort, _ = f.GetInt("monitor-port")
	o.openBrowser, _ = f.GetBool("open-browser")
	o.json, _ = f.GetBool("json")

	if o.monitorPort != 0 {
		o.monitor = true
	}

	return o
}

func runTrace(cmd *cobra.Command, args []string) (err error) {
	cfg, err := readBridgeConfig(cmd.Flags())
	if err != nil {
		return err
	}

	ops, err := readTrace(cmd, args[0])
	if err != nil {
		return err
	}

	err = writesMustFitWriteBuffer(cfg, ops)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	opts := readRunOptions(cmd)
	runID := xid.New().String()
	stderr := cmd.ErrOrStderr()

	fmt.Fprintf(stderr, "run %s: %d ops from %s\n", runID, len(ops), args[0])

	memSys := buildMemorySystem(cfg, opts, stderr)

	hooks := []sim.Hook{}

	if opts.textTrace {
		hooks = append(hooks, trace.NewTracer(log.New(stderr, "", 0)))
	}

	if opts.traceDB != "" {
		recorder := datarecording.New(opts.traceDB)
		defer func() {
			closeErr := recorder.Close()
			if err == nil && closeErr != nil {
				err = fmt.Errorf("trace database: %w", closeErr)
			}
		}()

		hooks = append(hooks, trace.NewDBTracer(recorder))
	}

	bridge := dramifc.MakeBuilder().
		WithWriteBufferBytes(cfg.WriteBufferBytes).
		WithWriteBufferEntries(cfg.WriteBufferEntries).
		WithCPUCycleTimeNs(cfg.CPUCycleNs).
		WithMemorySystem(memSys).
		WithLogger(log.New(stderr, "", 0)).
		WithHooks(hooks...).
		Build("Bridge")
	defer bridge.Close()

	agentBuilder := traceagent.MakeBuilder().
		WithBridge(bridge).
		WithPollBeforeWrite(opts.pollBeforeWrite)

	if opts.monitor {
		bar, stop := startMonitor(bridge, opts, uint64(len(ops)))
		defer stop()

		agentBuilder = agentBuilder.WithProgressTracker(bar)
	}

	result := agentBuilder.Build("Agent").Run(ops)
	stats := bridge.Stats()

	return printSummary(cmd.OutOrStdout(), opts, summary{
		RunID:          runID,
		Trace:          args[0],
		Ops:            len(ops),
		TotalCycles:    result.TotalCycles(),
		AvgReadLatency: stats.AvgReadLatency(),
		Agent:          result,
		Bridge:         stats,
	})
}

func readTrace(cmd *cobra.Command, path string) ([]traceagent.Op, error) {
	var r io.Reader = cmd.InOrStdin()

	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		r = f
	}

	ops, err := traceagent.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ops, nil
}

// writesMustFitWriteBuffer rejects trace writes that a timed write buffer
// could never absorb.
func writesMustFitWriteBuffer(cfg bridgeConfig, ops []traceagent.Op) error {
	if !cfg.writeBufferEnabled() {
		return nil
	}

	for _, op := range ops {
		if op.Kind == traceagent.OpWrite && op.Size > cfg.WriteBufferBytes {
			return fmt.Errorf("line %d: write of %d bytes exceeds the "+
				"%d-byte write buffer", op.Line, op.Size, cfg.WriteBufferBytes)
		}
	}

	return nil
}

func buildMemorySystem(
	cfg bridgeConfig,
	opts runOptions,
	stderr io.Writer,
) *dram.MemorySystem {
	b := dram.MakeBuilder().
		WithConfig(cfg.DRAM).
		WithCapacityMB(cfg.CapacityMB)

	if opts.dramTrace {
		b = b.WithTraceLogger(log.New(stderr, "", 0))
	}

	return b.Build()
}

func startMonitor(
	bridge *dramifc.Comp,
	opts runOptions,
	numOps uint64,
) (*monitoring.ProgressBar, func()) {
	m := monitoring.NewMonitor().WithPortNumber(opts.monitorPort)
	m.RegisterBridge(bridge)
	bar := m.CreateProgressBar("Trace", numOps)
	port := m.StartServer()

	if opts.openBrowser {
		if err := m.OpenBrowser(port); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	return bar, func() {
		m.CompleteProgressBar(bar)
		m.StopServer()
	}
}

func printSummary(w io.Writer, opts runOptions, s summary) error {
	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(s)
	}

	fmt.Fprintf(w, "run %s\n", s.RunID)
	fmt.Fprintf(w, "ops: %d (%d reads, %d writes, %d idle ticks)\n",
		s.Ops, s.Agent.Reads, s.Agent.Writes, s.Agent.IdleTicks)
	fmt.Fprintf(w, "cpu cycles: %d (read %d, write %d, idle %d, poll %d)\n",
		s.TotalCycles, s.Agent.ReadCycles, s.Agent.WriteCycles,
		s.Agent.IdleCycles, s.Agent.PollCycles)
	fmt.Fprintf(w, "avg read latency: %.2f memory cycles\n", s.AvgReadLatency)
	fmt.Fprintf(w, "writes: %d buffered, %d stalled, %d untimed, "+
		"%d drain submissions, %d unknown completions\n",
		s.Bridge.BufferedWrites, s.Bridge.StalledWrites,
		s.Bridge.UntimedWrites, s.Bridge.DrainSubmissions,
		s.Bridge.UnknownCompletions)
	fmt.Fprintf(w, "write buffer: %d/%d bytes occupied\n",
		s.Bridge.WriteBufferOccupied, s.Bridge.WriteBufferCapacity)

	return nil
}
