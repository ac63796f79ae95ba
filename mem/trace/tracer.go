// Package trace provides hooks that record the activity of a DRAM bridge.
package trace

import (
	"log"

	"github.com/rs/xid"
	"github.com/sarchlab/dramifc/datarecording"
	"github.com/sarchlab/dramifc/mem"
	"github.com/sarchlab/dramifc/mem/dramifc"
	"github.com/sarchlab/dramifc/sim"
)

// Table names used by the database tracer.
const (
	ReadTable  = "dram_reads"
	WriteTable = "dram_writes"
	EventTable = "dram_events"
	PowerTable = "dram_power"
)

// readEntry is a completed read.
type readEntry struct {
	ID         string
	Location   string
	Address    uint64
	ByteSize   uint64
	StartCycle uint64
	EndCycle   uint64
	MemCycles  uint64
	CPUCycles  uint64
}

// writeEntry is a buffered write, recorded once the memory system commits
// it.
type writeEntry struct {
	ID          string
	Location    string
	Address     uint64
	ByteSize    uint64
	BufferedAt  uint64
	SubmittedAt uint64
	DoneAt      uint64
	Submissions uint64
	Drained     bool
	StallCycles uint64
}

// eventEntry is a single bridge event that does not belong to a paired
// transaction.
type eventEntry struct {
	ID       string
	Location string
	What     string
	Address  uint64
	ByteSize uint64
	MemCycle uint64
	Cycles   uint64
}

// powerEntry is one power report of the memory system.
type powerEntry struct {
	Location   string
	MemCycle   uint64
	Background float64
	Burst      float64
	Refresh    float64
	ActPre     float64
	Total      float64
}

func locationOf(ctx sim.HookCtx) string {
	named, ok := ctx.Domain.(interface{ Name() string })
	if !ok {
		return "unknown"
	}

	return named.Name()
}

// A tracer is a hook that prints the bridge activity as text lines.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a hook that writes one line per bridge event.
func NewTracer(logger *log.Logger) sim.Hook {
	return &tracer{logger: logger}
}

// Func prints the event.
func (t *tracer) Func(ctx sim.HookCtx) {
	switch item := ctx.Item.(type) {
	case dramifc.Access:
		t.logger.Printf("%s, %d, %s, 0x%x, %d, %d\n",
			ctx.Pos.Name,
			item.MemCycle,
			locationOf(ctx),
			item.Addr,
			item.Size,
			item.CPUCycles,
		)
	case mem.PowerSample:
		t.logger.Printf("%s, %d, %s, %.6f\n",
			ctx.Pos.Name,
			ctx.Detail,
			locationOf(ctx),
			item.Total(),
		)
	}
}

// A dbTracer is a hook that records the bridge activity into a database
// using the data recorder.
type dbTracer struct {
	dataRecorder  datarecording.DataRecorder
	pendingReads  map[uint64]*readEntry
	pendingWrites map[uint64][]*writeEntry
}

// NewDBTracer creates a hook that records reads, writes, unpaired events and
// power samples into the data recorder.
func NewDBTracer(dataRecorder datarecording.DataRecorder) sim.Hook {
	t := &dbTracer{
		dataRecorder:  dataRecorder,
		pendingReads:  make(map[uint64]*readEntry),
		pendingWrites: make(map[uint64][]*writeEntry),
	}

	t.dataRecorder.CreateTable(ReadTable, readEntry{})
	t.dataRecorder.CreateTable(WriteTable, writeEntry{})
	t.dataRecorder.CreateTable(EventTable, eventEntry{})
	t.dataRecorder.CreateTable(PowerTable, powerEntry{})

	return t
}

// Func records the event.
func (t *dbTracer) Func(ctx sim.HookCtx) {
	switch item := ctx.Item.(type) {
	case dramifc.Access:
		t.recordAccess(ctx, item)
	case mem.PowerSample:
		t.recordPower(ctx, item)
	}
}

func (t *dbTracer) recordAccess(ctx sim.HookCtx, access dramifc.Access) {
	switch ctx.Pos {
	case dramifc.HookPosReadStart:
		t.startRead(ctx, access)
	case dramifc.HookPosReadEnd:
		t.endRead(access)
	case dramifc.HookPosWriteBuffered:
		t.startWrite(ctx, access)
	case dramifc.HookPosWriteStallEnd:
		t.stallWrite(access)
	case dramifc.HookPosWriteSubmit:
		t.submitWrite(access)
	case dramifc.HookPosWriteDone:
		t.endWrite(access)
	case dramifc.HookPosWriteStallStart, dramifc.HookPosUnknownCompletion:
		t.recordEvent(ctx, access)
	}
}

func (t *dbTracer) startRead(ctx sim.HookCtx, access dramifc.Access) {
	t.pendingReads[access.Addr] = &readEntry{
		ID:         xid.New().String(),
		Location:   locationOf(ctx),
		Address:    access.Addr,
		ByteSize:   access.Size,
		StartCycle: access.MemCycle,
	}
}

func (t *dbTracer) endRead(access dramifc.Access) {
	entry, exists := t.pendingReads[access.Addr]
	if !exists {
		return
	}

	entry.EndCycle = access.MemCycle
	entry.MemCycles = access.Cycles
	entry.CPUCycles = access.CPUCycles
	t.dataRecorder.InsertData(ReadTable, *entry)

	delete(t.pendingReads, access.Addr)
}

func (t *dbTracer) startWrite(ctx sim.HookCtx, access dramifc.Access) {
	entry := &writeEntry{
		ID:         xid.New().String(),
		Location:   locationOf(ctx),
		Address:    access.Addr,
		ByteSize:   access.Size,
		BufferedAt: access.MemCycle,
	}

	t.pendingWrites[access.Addr] = append(t.pendingWrites[access.Addr], entry)
}

func (t *dbTracer) stallWrite(access dramifc.Access) {
	list := t.pendingWrites[access.Addr]
	if len(list) == 0 {
		return
	}

	list[len(list)-1].StallCycles = access.Cycles
}

func (t *dbTracer) submitWrite(access dramifc.Access) {
	list := t.pendingWrites[access.Addr]
	if len(list) == 0 {
		return
	}

	for _, entry := range list {
		if entry.Submissions == 0 {
			entry.SubmittedAt = access.MemCycle
			entry.Submissions = 1
			entry.Drained = access.IsDrain

			return
		}
	}

	list[0].Submissions++
}

func (t *dbTracer) endWrite(access dramifc.Access) {
	list := t.pendingWrites[access.Addr]
	if len(list) == 0 {
		return
	}

	entry := list[0]
	entry.DoneAt = access.MemCycle
	t.dataRecorder.InsertData(WriteTable, *entry)

	if len(list) == 1 {
		delete(t.pendingWrites, access.Addr)
		return
	}

	t.pendingWrites[access.Addr] = list[1:]
}

func (t *dbTracer) recordEvent(ctx sim.HookCtx, access dramifc.Access) {
	t.dataRecorder.InsertData(EventTable, eventEntry{
		ID:       xid.New().String(),
		Location: locationOf(ctx),
		What:     ctx.Pos.Name,
		Address:  access.Addr,
		ByteSize: access.Size,
		MemCycle: access.MemCycle,
		Cycles:   access.Cycles,
	})
}

func (t *dbTracer) recordPower(ctx sim.HookCtx, sample mem.PowerSample) {
	memCycle, _ := ctx.Detail.(uint64)

	t.dataRecorder.InsertData(PowerTable, powerEntry{
		Location:   locationOf(ctx),
		MemCycle:   memCycle,
		Background: sample.Background,
		Burst:      sample.Burst,
		Refresh:    sample.Refresh,
		ActPre:     sample.ActPre,
		Total:      sample.Total(),
	})
}
