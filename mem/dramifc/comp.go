// Package dramifc connects a cycle-stepped processor model to a memory-timing
// engine that completes transactions asynchronously in its own clock domain.
//
// The processor calls Read and Write and expects a latency back in its own
// cycles. The bridge turns the engine's completion callbacks into those
// latencies by ticking the engine until the awaited completion shows up.
// Writes are absorbed by a write buffer and only cost the processor time
// when the buffer is full.
package dramifc

import (
	"io"
	"log"
	"sync"

	"github.com/sarchlab/dramifc/mem"
	"github.com/sarchlab/dramifc/mem/writebuffer"
	"github.com/sarchlab/dramifc/sim"
)

// Comp is the processor-memory bridge.
//
// All the processor-facing methods are meant to be called from one
// simulation goroutine. The memory system must only be ticked through the
// bridge, since completion callbacks mutate the bridge state.
type Comp struct {
	sim.HookableBase

	name        string
	lock        sync.Mutex
	memSys      mem.MemorySystem
	converter   sim.CycleConverter
	writeBuffer *writebuffer.Buffer
	logger      *log.Logger

	readDone  bool
	writeDone bool
	memCycle  uint64
	closed    bool

	stats Stats
}

// Name returns the name of the bridge.
func (c *Comp) Name() string {
	return c.name
}

// CycleMultiplier returns the number of processor cycles per memory cycle.
func (c *Comp) CycleMultiplier() uint64 {
	return c.converter.Multiplier()
}

// Read issues a read and blocks until the memory system completes it. It
// returns the latency in processor cycles.
func (c *Comp) Read(blockSize, addr uint64) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.mustBeOpen()

	cycles := c.clockAndGetReadLatency(blockSize, addr)

	return c.converter.ToProcessorCycles(cycles)
}

// Write hands a write to the write buffer. It only costs processor cycles
// when the buffer is full, in which case the latency is the time spent
// waiting for room, not the time until the data is committed. With the
// write buffer disabled, writes are not timed and cost nothing.
func (c *Comp) Write(blockSize, addr uint64) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.mustBeOpen()
	c.stats.Writes++

	if !c.writeBuffer.Enabled() {
		c.stats.UntimedWrites++
		return 0
	}

	c.blockSizeMustFit(blockSize)

	cycles := c.clockAndGetWriteLatency(blockSize, addr)

	return c.converter.ToProcessorCycles(cycles)
}

// IsWriteBufferSlotFree returns true if a write of blockSize bytes would be
// absorbed without waiting. A disabled write buffer never makes writes wait.
func (c *Comp) IsWriteBufferSlotFree(blockSize uint64) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.mustBeOpen()

	if !c.writeBuffer.Enabled() {
		return true
	}

	_, found := c.writeBuffer.FindFreeEntry(blockSize)

	return found
}

// Tick advances the memory system by one of its own cycles.
func (c *Comp) Tick() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.mustBeOpen()
	c.stats.Ticks++
	c.tickMemSys()
}

// Close detaches the bridge from the memory system. The bridge cannot be
// used afterwards.
func (c *Comp) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return
	}

	c.memSys.RegisterCallbacks(nil, nil, nil)
	c.closed = true
}

// Stats returns a snapshot of the bridge counters.
func (c *Comp) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()

	s := c.stats
	s.WriteBufferOccupied = c.writeBuffer.OccupiedBytes()
	s.WriteBufferCapacity = c.writeBuffer.CapacityBytes()

	return s
}

// WriteBufferEntries returns a copy of the write buffer slots.
func (c *Comp) WriteBufferEntries() []writebuffer.Entry {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.writeBuffer.Entries()
}

// PrintWriteBuffer dumps the write buffer slots.
func (c *Comp) PrintWriteBuffer(w io.Writer) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.writeBuffer.Print(w)
}

func (c *Comp) mustBeOpen() {
	if c.closed {
		log.Panicf("%s: bridge used after close", c.name)
	}
}

func (c *Comp) blockSizeMustFit(blockSize uint64) {
	if blockSize == 0 {
		log.Panicf("%s: write of 0 bytes", c.name)
	}

	if blockSize > c.writeBuffer.CapacityBytes() {
		log.Panicf("%s: write of %d bytes can never fit in a %d-byte "+
			"write buffer", c.name, blockSize, c.writeBuffer.CapacityBytes())
	}
}

func (c *Comp) tickMemSys() {
	c.memSys.Tick()
	c.memCycle++
}

func (c *Comp) invokeAccessHook(pos *sim.HookPos, access Access) {
	if c.NumHooks() == 0 {
		return
	}

	access.MemCycle = c.memCycle
	access.CPUCycles = c.converter.ToProcessorCycles(access.Cycles)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   access,
	})
}
