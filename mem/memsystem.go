// Package mem defines the boundary between the processor-side bridge and a
// cycle-accurate memory-timing engine.
package mem

// For capacity
const (
	_         = iota
	KB uint64 = 1 << (10 * iota)
	MB
	GB
)

// TransactionCompleteFunc is invoked by a memory system when a transaction
// finishes. The cycle is the memory system's own cycle number.
type TransactionCompleteFunc func(id uint64, addr uint64, cycle uint64)

// PowerSample reports the average power, in milliwatts, consumed during the
// last epoch.
type PowerSample struct {
	Background float64
	Burst      float64
	Refresh    float64
	ActPre     float64
}

// Total returns the sum of all power components.
func (p PowerSample) Total() float64 {
	return p.Background + p.Burst + p.Refresh + p.ActPre
}

// PowerFunc is invoked by a memory system at the end of every power epoch.
type PowerFunc func(sample PowerSample)

// MemorySystem is a cycle-accurate memory-timing engine that is driven one
// cycle at a time and reports completions through callbacks.
type MemorySystem interface {
	// SetCPUClockSpeed sets the frequency, in Hz, at which Tick is called. 0
	// means that every Tick advances exactly one memory cycle.
	SetCPUClockSpeed(hz uint64)

	// Tick advances the memory system by one cycle. Completion callbacks are
	// invoked from inside Tick.
	Tick()

	// AddTransaction submits a transaction. It returns false if the memory
	// system cannot admit it at the moment.
	AddTransaction(isWrite bool, addr uint64) bool

	// WillAcceptTransaction reports whether a transaction would be admitted.
	WillAcceptTransaction() bool

	// RegisterCallbacks sets the completion and power callbacks. Any of them
	// can be nil.
	RegisterCallbacks(
		readDone, writeDone TransactionCompleteFunc,
		power PowerFunc,
	)

	// CyclePeriodNs returns the memory system's own clock period.
	CyclePeriodNs() float64
}
