package dramifc

import "github.com/sarchlab/dramifc/sim"

// Hook positions that the bridge exposes.
var (
	// HookPosReadStart marks a read being handed to the memory system.
	HookPosReadStart = &sim.HookPos{Name: "Read Start"}

	// HookPosReadEnd marks a blocking read that has completed.
	HookPosReadEnd = &sim.HookPos{Name: "Read End"}

	// HookPosWriteBuffered marks a write absorbed by the write buffer.
	HookPosWriteBuffered = &sim.HookPos{Name: "Write Buffered"}

	// HookPosWriteStallStart marks a write that found the buffer full.
	HookPosWriteStallStart = &sim.HookPos{Name: "Write Stall Start"}

	// HookPosWriteStallEnd marks a stalled write that saw a completion.
	HookPosWriteStallEnd = &sim.HookPos{Name: "Write Stall End"}

	// HookPosWriteSubmit marks a write transaction sent to the memory
	// system, either right after buffering or as a drain.
	HookPosWriteSubmit = &sim.HookPos{Name: "Write Submit"}

	// HookPosWriteDone marks a write completion reported by the memory
	// system.
	HookPosWriteDone = &sim.HookPos{Name: "Write Done"}

	// HookPosUnknownCompletion marks a write completion for an address
	// that the write buffer no longer tracks.
	HookPosUnknownCompletion = &sim.HookPos{Name: "Unknown Completion"}

	// HookPosPowerSample marks a power report from the memory system.
	HookPosPowerSample = &sim.HookPos{Name: "Power Sample"}
)

// Access is the hook item for read and write activity.
type Access struct {
	Addr      uint64
	Size      uint64
	IsWrite   bool
	IsDrain   bool
	MemCycle  uint64
	Cycles    uint64
	CPUCycles uint64
}
