// Package dram provides a cycle-level DRAM timing model that is driven one
// cycle at a time and reports completed transactions through callbacks.
package dram

import (
	"log"
	"sort"

	"github.com/sarchlab/dramifc/mem"
	"github.com/sarchlab/dramifc/sim"
)

// MemorySystem is a multi-channel DRAM timing model. It implements
// mem.MemorySystem.
type MemorySystem struct {
	cfg      Config
	label    string
	mapper   addressMapper
	channels []*channel
	logger   *log.Logger

	cycle    uint64
	nextID   uint64
	inflight []*transaction

	cpuFreq      sim.Freq
	cpuPendingNs float64

	readDone  mem.TransactionCompleteFunc
	writeDone mem.TransactionCompleteFunc
	power     mem.PowerFunc

	epochStart uint64
	counters   powerCounters
}

// Label returns the name given to the memory system.
func (m *MemorySystem) Label() string {
	return m.label
}

// Config returns the configuration the memory system runs with.
func (m *MemorySystem) Config() Config {
	return m.cfg
}

// CyclePeriodNs returns tCK.
func (m *MemorySystem) CyclePeriodNs() float64 {
	return m.cfg.Device.TCK
}

// CurrentCycle returns the number of memory cycles elapsed.
func (m *MemorySystem) CurrentCycle() uint64 {
	return m.cycle
}

// NumPending returns the number of transactions that are queued or issued
// but not completed.
func (m *MemorySystem) NumPending() int {
	n := len(m.inflight)
	for _, c := range m.channels {
		n += len(c.queue)
	}

	return n
}

// SetCPUClockSpeed sets the frequency of Tick calls. With 0, each Tick is a
// memory cycle. Otherwise, the memory system advances as many memory cycles
// as fit in the elapsed CPU time.
func (m *MemorySystem) SetCPUClockSpeed(hz uint64) {
	m.cpuFreq = sim.Freq(hz)
	m.cpuPendingNs = 0
}

// RegisterCallbacks sets the completion and power callbacks.
func (m *MemorySystem) RegisterCallbacks(
	readDone, writeDone mem.TransactionCompleteFunc,
	power mem.PowerFunc,
) {
	m.readDone = readDone
	m.writeDone = writeDone
	m.power = power
}

// WillAcceptTransaction returns true if a transaction slot is free.
func (m *MemorySystem) WillAcceptTransaction() bool {
	return m.NumPending() < m.numSlots()
}

// numSlots is the number of transactions that can be pending at once. A
// transaction holds its slot from admission until it completes, and the slots
// are shared by all channels, so a completion callback can always add one
// transaction of its own.
func (m *MemorySystem) numSlots() int {
	return m.cfg.System.TransQueueDepth * m.cfg.System.NumChannels
}

// AddTransaction queues a transaction in the channel that owns the address.
// It returns false if no transaction slot is free.
func (m *MemorySystem) AddTransaction(isWrite bool, addr uint64) bool {
	if !m.WillAcceptTransaction() {
		return false
	}

	loc := m.mapper.locate(addr)
	c := m.channels[loc.channel]

	m.nextID++
	t := &transaction{
		id:      m.nextID,
		isWrite: isWrite,
		addr:    addr,
		loc:     loc,
		addedAt: m.cycle,
	}
	c.push(t)

	m.tracef("add, %d, %d, %t, 0x%x, ch %d, rank %d, bank %d, row %d",
		m.cycle, t.id, isWrite, addr, loc.channel, loc.rank, loc.bank, loc.row)

	return true
}

// Tick advances the memory system.
func (m *MemorySystem) Tick() {
	if m.cpuFreq == 0 {
		m.update()
		return
	}

	m.cpuPendingNs += m.cpuFreq.PeriodNs()
	for m.cpuPendingNs >= m.cfg.Device.TCK {
		m.cpuPendingNs -= m.cfg.Device.TCK
		m.update()
	}
}

func (m *MemorySystem) update() {
	m.cycle++

	for _, c := range m.channels {
		m.counters.refreshes += uint64(c.refresh(m.cycle))
	}

	m.complete()

	for _, c := range m.channels {
		t := c.issue(m.cycle, &m.counters)
		if t != nil {
			m.inflight = append(m.inflight, t)
			m.tracef("issue, %d, %d, done at %d", m.cycle, t.id, t.doneAt)
		}
	}

	m.reportPower()
}

// complete removes the transactions that finish at this cycle before
// calling back, since callbacks may add new transactions.
func (m *MemorySystem) complete() {
	var done []*transaction

	remaining := m.inflight[:0]
	for _, t := range m.inflight {
		if t.doneAt <= m.cycle {
			done = append(done, t)
		} else {
			remaining = append(remaining, t)
		}
	}

	for i := len(remaining); i < len(m.inflight); i++ {
		m.inflight[i] = nil
	}

	m.inflight = remaining

	sort.Slice(done, func(i, j int) bool {
		if done[i].doneAt != done[j].doneAt {
			return done[i].doneAt < done[j].doneAt
		}

		return done[i].id < done[j].id
	})

	for _, t := range done {
		m.tracef("done, %d, %d, latency %d", m.cycle, t.id, m.cycle-t.addedAt)

		callback := m.readDone
		if t.isWrite {
			callback = m.writeDone
		}

		if callback != nil {
			callback(t.id, t.addr, m.cycle)
		}
	}
}

func (m *MemorySystem) reportPower() {
	epoch := m.cfg.System.EpochLength
	if epoch == 0 || m.cycle-m.epochStart < epoch {
		return
	}

	sample := m.counters.powerSample(m.cfg, m.cycle-m.epochStart)
	m.counters = powerCounters{}
	m.epochStart = m.cycle

	if m.power != nil {
		m.power(sample)
	}
}

func (m *MemorySystem) tracef(format string, args ...any) {
	if m.logger == nil {
		return
	}

	m.logger.Printf(m.label+", "+format, args...)
}
