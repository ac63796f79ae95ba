package dramifc

import (
	"log"
	"os"

	"github.com/sarchlab/dramifc/mem"
	"github.com/sarchlab/dramifc/mem/writebuffer"
	"github.com/sarchlab/dramifc/sim"
)

// Builder can build bridges.
type Builder struct {
	writeBufferBytes   uint64
	writeBufferEntries int
	cpuCycleTimeNs     float64
	memSys             mem.MemorySystem
	logger             *log.Logger
	hooks              []sim.Hook
}

// MakeBuilder creates a builder with default configuration.
func MakeBuilder() Builder {
	return Builder{
		writeBufferBytes:   1024,
		writeBufferEntries: 16,
		cpuCycleTimeNs:     0.25,
	}
}

// WithWriteBufferBytes sets the number of bytes the write buffer can hold.
// 0 disables the write buffer.
func (b Builder) WithWriteBufferBytes(n uint64) Builder {
	b.writeBufferBytes = n
	return b
}

// WithWriteBufferEntries sets the number of writes the write buffer can
// hold. 0 disables the write buffer.
func (b Builder) WithWriteBufferEntries(n int) Builder {
	b.writeBufferEntries = n
	return b
}

// WithCPUCycleTimeNs sets the processor cycle period. The memory system's
// cycle period must be an integral multiple of it.
func (b Builder) WithCPUCycleTimeNs(t float64) Builder {
	b.cpuCycleTimeNs = t
	return b
}

// WithMemorySystem sets the memory-timing engine that the bridge drives.
func (b Builder) WithMemorySystem(ms mem.MemorySystem) Builder {
	b.memSys = ms
	return b
}

// WithLogger sets where the configuration banner and anomalies are
// reported.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// WithHooks registers hooks with the bridge.
func (b Builder) WithHooks(hooks ...sim.Hook) Builder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.memSys == nil {
		log.Panic("memory system is not set")
	}

	if b.writeBufferEntries < 0 {
		log.Panicf("write buffer entries cannot be %d", b.writeBufferEntries)
	}
}

// Build creates a bridge and registers its callbacks with the memory
// system. It panics if the memory cycle period is not an integral multiple
// of the processor cycle period.
func (b Builder) Build(name string) *Comp {
	b.parametersMustBeValid()

	converter, err := sim.NewCycleConverter(
		b.memSys.CyclePeriodNs(), b.cpuCycleTimeNs)
	if err != nil {
		log.Panicf("%s: %v", name, err)
	}

	c := &Comp{
		name:        name,
		memSys:      b.memSys,
		converter:   converter,
		writeBuffer: writebuffer.New(b.writeBufferBytes, b.writeBufferEntries),
		logger:      b.logger,
	}

	if c.logger == nil {
		c.logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	b.memSys.SetCPUClockSpeed(0)
	b.memSys.RegisterCallbacks(c.onReadDone, c.onWriteDone, c.onPowerSample)

	c.printBanner()

	return c
}

func (c *Comp) printBanner() {
	c.logger.Printf("%s: write buffer %d bytes, %d entries, enabled %t",
		c.name,
		c.writeBuffer.CapacityBytes(),
		c.writeBuffer.NumEntries(),
		c.writeBuffer.Enabled())
	c.logger.Printf("%s: cpu cycle %gns, memory cycle %gns, ratio %d",
		c.name,
		c.converter.ProcessorPeriodNs(),
		c.converter.EnginePeriodNs(),
		c.converter.Multiplier())
}
