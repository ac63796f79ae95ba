// Package traceagent replays a memory trace against a DRAM bridge, standing
// in for the processor model.
package traceagent

import (
	"log"
)

// Bridge is the processor-facing surface of a DRAM bridge.
type Bridge interface {
	Read(blockSize, addr uint64) uint64
	Write(blockSize, addr uint64) uint64
	IsWriteBufferSlotFree(blockSize uint64) bool
	Tick()
	CycleMultiplier() uint64
}

// ProgressTracker receives the number of ops finished.
type ProgressTracker interface {
	IncrementFinished(amount uint64)
}

// Result sums up a replayed trace. All cycle counts are processor cycles.
type Result struct {
	Reads       uint64 `json:"reads"`
	Writes      uint64 `json:"writes"`
	IdleTicks   uint64 `json:"idle_ticks"`
	PollTicks   uint64 `json:"poll_ticks"`
	ReadCycles  uint64 `json:"read_cycles"`
	WriteCycles uint64 `json:"write_cycles"`
	IdleCycles  uint64 `json:"idle_cycles"`
	PollCycles  uint64 `json:"poll_cycles"`
}

// TotalCycles returns the processor time the trace took.
func (r Result) TotalCycles() uint64 {
	return r.ReadCycles + r.WriteCycles + r.IdleCycles + r.PollCycles
}

// An Agent issues the reads and writes of a trace to a bridge.
type Agent struct {
	name            string
	bridge          Bridge
	pollBeforeWrite bool
	maxPollTicks    uint64
	progress        ProgressTracker
	logger          *log.Logger

	result Result
}

// Result returns the totals accumulated so far.
func (a *Agent) Result() Result {
	return a.result
}

// Run replays the ops in order.
func (a *Agent) Run(ops []Op) Result {
	for _, op := range ops {
		a.step(op)

		if a.progress != nil {
			a.progress.IncrementFinished(1)
		}
	}

	return a.result
}

func (a *Agent) step(op Op) {
	switch op.Kind {
	case OpRead:
		cycles := a.bridge.Read(op.Size, op.Addr)
		a.result.Reads++
		a.result.ReadCycles += cycles
		a.dump(op, cycles)
	case OpWrite:
		a.pollForSlot(op.Size)

		cycles := a.bridge.Write(op.Size, op.Addr)
		a.result.Writes++
		a.result.WriteCycles += cycles
		a.dump(op, cycles)
	case OpIdle:
		for i := uint64(0); i < op.Ticks; i++ {
			a.bridge.Tick()
		}

		a.result.IdleTicks += op.Ticks
		a.result.IdleCycles += op.Ticks * a.bridge.CycleMultiplier()
	default:
		log.Panicf("%s: unknown op kind %d at line %d",
			a.name, op.Kind, op.Line)
	}
}

// pollForSlot ticks the bridge while the write buffer has no room, up to the
// poll limit. A write that still does not fit is left to the bridge.
func (a *Agent) pollForSlot(size uint64) {
	if !a.pollBeforeWrite {
		return
	}

	ticks := uint64(0)
	for ticks < a.maxPollTicks && !a.bridge.IsWriteBufferSlotFree(size) {
		a.bridge.Tick()
		ticks++
	}

	a.result.PollTicks += ticks
	a.result.PollCycles += ticks * a.bridge.CycleMultiplier()
}

func (a *Agent) dump(op Op, cycles uint64) {
	if a.logger == nil {
		return
	}

	a.logger.Printf("%s, %s, 0x%x, %d, %d\n",
		a.name, op.Kind, op.Addr, op.Size, cycles)
}
