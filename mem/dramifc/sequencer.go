package dramifc

import "log"

// clockAndGetReadLatency submits a read and ticks the memory system until
// the read completes. It returns the number of memory cycles spent.
func (c *Comp) clockAndGetReadLatency(blockSize, addr uint64) uint64 {
	cycles := uint64(0)

	c.invokeAccessHook(HookPosReadStart,
		Access{Addr: addr, Size: blockSize})

	for !c.memSys.AddTransaction(false, addr) {
		c.tickMemSys()
		cycles++
	}

	c.readDone = false
	for !c.readDone {
		c.tickMemSys()
		cycles++
	}

	c.stats.Reads++
	c.stats.ReadCycles += cycles

	c.invokeAccessHook(HookPosReadEnd,
		Access{Addr: addr, Size: blockSize, Cycles: cycles})

	return cycles
}

// clockAndGetWriteLatency places a write in the write buffer, ticking the
// memory system while the buffer is full. It returns the number of memory
// cycles spent waiting for room, which is 0 for a write that fits right
// away.
func (c *Comp) clockAndGetWriteLatency(blockSize, addr uint64) uint64 {
	cycles := uint64(0)
	stalled := false

	for {
		i, found := c.writeBuffer.FindFreeEntry(blockSize)
		if found {
			c.bufferWrite(i, blockSize, addr)

			if stalled {
				c.stats.WriteStallCycles += cycles
				c.invokeAccessHook(HookPosWriteStallEnd, Access{
					Addr:    addr,
					Size:    blockSize,
					IsWrite: true,
					Cycles:  cycles,
				})
			}

			return cycles
		}

		if !stalled {
			stalled = true
			c.stats.StalledWrites++
			c.invokeAccessHook(HookPosWriteStallStart,
				Access{Addr: addr, Size: blockSize, IsWrite: true})
		}

		c.writeDone = false
		for !c.writeDone {
			c.tickMemSys()
			cycles++
		}
	}
}

func (c *Comp) bufferWrite(slot int, blockSize, addr uint64) {
	c.writeBuffer.Reserve(slot, addr, blockSize)
	c.stats.BufferedWrites++

	c.invokeAccessHook(HookPosWriteBuffered,
		Access{Addr: addr, Size: blockSize, IsWrite: true})

	// A busy memory system is fine, a later completion drains this entry.
	if c.memSys.WillAcceptTransaction() {
		c.submitWrite(addr, blockSize, false)
	}
}

func (c *Comp) submitWrite(addr, size uint64, isDrain bool) {
	if !c.memSys.AddTransaction(true, addr) {
		log.Panicf("%s: memory system refused write to 0x%x", c.name, addr)
	}

	if isDrain {
		c.stats.DrainSubmissions++
	} else {
		c.stats.WriteSubmissions++
	}

	c.invokeAccessHook(HookPosWriteSubmit, Access{
		Addr:    addr,
		Size:    size,
		IsWrite: true,
		IsDrain: isDrain,
	})
}
