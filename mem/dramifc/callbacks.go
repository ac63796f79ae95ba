package dramifc

import (
	"github.com/sarchlab/dramifc/mem"
	"github.com/sarchlab/dramifc/sim"
)

func (c *Comp) onReadDone(_ uint64, _ uint64, _ uint64) {
	c.readDone = true
}

func (c *Comp) onWriteDone(_ uint64, addr uint64, cycle uint64) {
	c.writeDone = true
	c.stats.WriteCompletions++

	entry, found := c.writeBuffer.Release(addr)
	if found {
		c.invokeAccessHook(HookPosWriteDone, Access{
			Addr:    addr,
			Size:    entry.Size,
			IsWrite: true,
		})
	} else {
		c.stats.UnknownCompletions++
		c.logger.Printf(
			"%s: write to 0x%x completed at memory cycle %d "+
				"but is not in the write buffer",
			c.name, addr, cycle)
		c.invokeAccessHook(HookPosUnknownCompletion,
			Access{Addr: addr, IsWrite: true})
	}

	if c.writeBuffer.OccupiedBytes() == 0 {
		return
	}

	next, _ := c.writeBuffer.PickDrainCandidate()
	c.submitWrite(next.Addr, next.Size, true)
}

func (c *Comp) onPowerSample(sample mem.PowerSample) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosPowerSample,
		Item:   sample,
		Detail: c.memCycle,
	})
}
