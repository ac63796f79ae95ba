package dramifc

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/dramifc/mem"
	"github.com/sarchlab/dramifc/mem/writebuffer"
	"github.com/sarchlab/dramifc/sim"
)

type hookRecord struct {
	pos  *sim.HookPos
	item interface{}
}

type recordingHook struct {
	records []hookRecord
}

func (h *recordingHook) Func(ctx sim.HookCtx) {
	h.records = append(h.records, hookRecord{pos: ctx.Pos, item: ctx.Item})
}

func (h *recordingHook) positions() []*sim.HookPos {
	positions := []*sim.HookPos{}
	for _, r := range h.records {
		positions = append(positions, r.pos)
	}

	return positions
}

var _ = Describe("Comp", func() {
	var (
		mockCtrl  *gomock.Controller
		memSys    *MockMemorySystem
		logBuf    *bytes.Buffer
		hook      *recordingHook
		readDone  mem.TransactionCompleteFunc
		writeDone mem.TransactionCompleteFunc
		power     mem.PowerFunc
		comp      *Comp
	)

	build := func(bufBytes uint64, bufEntries int) *Comp {
		memSys.EXPECT().SetCPUClockSpeed(uint64(0))
		memSys.EXPECT().
			RegisterCallbacks(gomock.Any(), gomock.Any(), gomock.Any()).
			Do(func(r, w mem.TransactionCompleteFunc, p mem.PowerFunc) {
				readDone = r
				writeDone = w
				power = p
			})

		return MakeBuilder().
			WithWriteBufferBytes(bufBytes).
			WithWriteBufferEntries(bufEntries).
			WithCPUCycleTimeNs(0.25).
			WithMemorySystem(memSys).
			WithLogger(log.New(logBuf, "", 0)).
			WithHooks(hook).
			Build("Bridge")
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		memSys = NewMockMemorySystem(mockCtrl)
		memSys.EXPECT().CyclePeriodNs().Return(1.25).AnyTimes()
		logBuf = new(bytes.Buffer)
		hook = &recordingHook{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when building", func() {
		It("should report the cycle multiplier", func() {
			comp = build(64, 2)

			Expect(comp.Name()).To(Equal("Bridge"))
			Expect(comp.CycleMultiplier()).To(Equal(uint64(5)))
			Expect(readDone).ToNot(BeNil())
			Expect(writeDone).ToNot(BeNil())
			Expect(power).ToNot(BeNil())
		})

		It("should print the configuration banner", func() {
			comp = build(64, 2)

			Expect(logBuf.String()).To(ContainSubstring("write buffer 64 bytes, 2 entries"))
			Expect(logBuf.String()).To(ContainSubstring("ratio 5"))
		})

		It("should panic if the cycle ratio is not integral", func() {
			Expect(func() {
				MakeBuilder().
					WithCPUCycleTimeNs(0.4).
					WithMemorySystem(memSys).
					WithLogger(log.New(logBuf, "", 0)).
					Build("Bridge")
			}).To(Panic())
		})

		It("should panic without a memory system", func() {
			Expect(func() { MakeBuilder().Build("Bridge") }).To(Panic())
		})
	})

	Context("when reading", func() {
		BeforeEach(func() {
			comp = build(64, 2)
		})

		It("should block until the read completes", func() {
			ticks := 0
			memSys.EXPECT().AddTransaction(false, uint64(0x40)).Return(true)
			memSys.EXPECT().Tick().Do(func() {
				ticks++
				if ticks == 10 {
					readDone(1, 0x40, uint64(ticks))
				}
			}).Times(10)

			cycles := comp.Read(64, 0x40)

			Expect(cycles).To(Equal(uint64(50)))
			Expect(comp.Stats().Reads).To(Equal(uint64(1)))
			Expect(comp.Stats().ReadCycles).To(Equal(uint64(10)))
			Expect(hook.positions()).To(Equal(
				[]*sim.HookPos{HookPosReadStart, HookPosReadEnd}))
			Expect(hook.records[1].item.(Access).CPUCycles).To(Equal(uint64(50)))
		})

		It("should count the cycles spent waiting for admission", func() {
			ticks := 0
			gomock.InOrder(
				memSys.EXPECT().AddTransaction(false, uint64(0x80)).Return(false),
				memSys.EXPECT().AddTransaction(false, uint64(0x80)).Return(false),
				memSys.EXPECT().AddTransaction(false, uint64(0x80)).Return(true),
			)
			memSys.EXPECT().Tick().Do(func() {
				ticks++
				if ticks == 5 {
					readDone(1, 0x80, uint64(ticks))
				}
			}).Times(5)

			Expect(comp.Read(64, 0x80)).To(Equal(uint64(25)))
		})
	})

	Context("when the write buffer is disabled", func() {
		It("should not time writes with zero capacity", func() {
			comp = build(0, 4)

			Expect(comp.Write(64, 0x40)).To(BeZero())
			Expect(comp.IsWriteBufferSlotFree(64)).To(BeTrue())
			Expect(comp.WriteBufferEntries()).To(HaveEach(writebuffer.Entry{}))
			Expect(comp.Stats().UntimedWrites).To(Equal(uint64(1)))
		})

		It("should not time writes with zero entries", func() {
			comp = build(64, 0)

			for i := uint64(0); i < 8; i++ {
				Expect(comp.Write(64, i*64)).To(BeZero())
			}

			Expect(comp.WriteBufferEntries()).To(BeEmpty())
			Expect(comp.Stats().BufferedWrites).To(BeZero())
		})
	})

	Context("when writing", func() {
		BeforeEach(func() {
			comp = build(64, 2)
		})

		It("should absorb writes that fit without blocking", func() {
			memSys.EXPECT().WillAcceptTransaction().Return(true).Times(2)
			memSys.EXPECT().AddTransaction(true, uint64(0x00)).Return(true)
			memSys.EXPECT().AddTransaction(true, uint64(0x40)).Return(true)

			Expect(comp.Write(32, 0x00)).To(BeZero())
			Expect(comp.Write(32, 0x40)).To(BeZero())

			Expect(comp.Stats().WriteBufferOccupied).To(Equal(uint64(64)))
			Expect(comp.IsWriteBufferSlotFree(32)).To(BeFalse())
		})

		It("should leave writes in the buffer if the memory system is busy", func() {
			memSys.EXPECT().WillAcceptTransaction().Return(false)

			Expect(comp.Write(32, 0x00)).To(BeZero())

			Expect(comp.WriteBufferEntries()[0]).To(Equal(
				writebuffer.Entry{Addr: 0x00, Size: 32}))
			Expect(comp.Stats().WriteSubmissions).To(BeZero())
		})

		It("should block a write when the buffer is full", func() {
			memSys.EXPECT().WillAcceptTransaction().Return(true).Times(3)
			first := memSys.EXPECT().AddTransaction(true, uint64(0x00)).Return(true)
			second := memSys.EXPECT().AddTransaction(true, uint64(0x40)).Return(true).After(first)
			drain := memSys.EXPECT().AddTransaction(true, uint64(0x40)).Return(true).After(second)
			memSys.EXPECT().AddTransaction(true, uint64(0x80)).Return(true).After(drain)

			ticks := 0
			memSys.EXPECT().Tick().Do(func() {
				ticks++
				if ticks == 7 {
					writeDone(1, 0x00, uint64(ticks))
				}
			}).Times(7)

			Expect(comp.Write(32, 0x00)).To(BeZero())
			Expect(comp.Write(32, 0x40)).To(BeZero())
			Expect(comp.Write(32, 0x80)).To(Equal(uint64(35)))

			Expect(comp.WriteBufferEntries()).To(Equal([]writebuffer.Entry{
				{Addr: 0x80, Size: 32},
				{Addr: 0x40, Size: 32},
			}))

			stats := comp.Stats()
			Expect(stats.StalledWrites).To(Equal(uint64(1)))
			Expect(stats.WriteStallCycles).To(Equal(uint64(7)))
			Expect(stats.DrainSubmissions).To(Equal(uint64(1)))
			Expect(hook.positions()).To(ContainElements(
				HookPosWriteStallStart, HookPosWriteDone, HookPosWriteStallEnd))
		})

		It("should keep waiting while completions do not make enough room", func() {
			comp = build(64, 4)
			memSys.EXPECT().WillAcceptTransaction().Return(false).Times(3)
			memSys.EXPECT().AddTransaction(true, gomock.Any()).Return(true).AnyTimes()

			comp.Write(16, 0x00)
			comp.Write(48, 0x40)

			ticks := 0
			memSys.EXPECT().Tick().Do(func() {
				ticks++
				switch ticks {
				case 3:
					writeDone(1, 0x00, uint64(ticks))
				case 8:
					writeDone(2, 0x40, uint64(ticks))
				}
			}).Times(8)

			Expect(comp.Write(40, 0x80)).To(Equal(uint64(40)))
			Expect(comp.Stats().WriteBufferOccupied).To(Equal(uint64(40)))
		})

		It("should panic on a write that can never fit", func() {
			Expect(func() { comp.Write(65, 0x00) }).To(Panic())
		})

		It("should panic on an empty write", func() {
			Expect(func() { comp.Write(0, 0x00) }).To(Panic())
		})
	})

	Context("when a write completes", func() {
		BeforeEach(func() {
			comp = build(96, 3)
			memSys.EXPECT().WillAcceptTransaction().Return(false).Times(3)
			comp.Write(32, 0x100)
			comp.Write(32, 0x200)
			comp.Write(32, 0x300)
		})

		It("should drain the first occupied entry in scan order", func() {
			memSys.EXPECT().AddTransaction(true, uint64(0x100)).Return(true).Times(1)

			writeDone(1, 0x200, 10)

			Expect(comp.Stats().WriteBufferOccupied).To(Equal(uint64(64)))
			Expect(comp.Stats().DrainSubmissions).To(Equal(uint64(1)))
		})

		It("should not drain once the buffer is empty", func() {
			memSys.EXPECT().AddTransaction(true, gomock.Any()).Return(true).Times(2)

			writeDone(1, 0x100, 10)
			writeDone(2, 0x200, 11)
			writeDone(3, 0x300, 12)

			Expect(comp.Stats().WriteBufferOccupied).To(BeZero())
			Expect(comp.Stats().DrainSubmissions).To(Equal(uint64(2)))
		})

		It("should panic if the memory system refuses a drain", func() {
			memSys.EXPECT().AddTransaction(true, uint64(0x100)).Return(false)

			Expect(func() { writeDone(1, 0x300, 10) }).To(Panic())
		})

		It("should log and ignore an unknown address", func() {
			memSys.EXPECT().AddTransaction(true, uint64(0x100)).Return(true)

			writeDone(1, 0x999, 10)

			Expect(comp.Stats().WriteBufferOccupied).To(Equal(uint64(96)))
			Expect(comp.Stats().UnknownCompletions).To(Equal(uint64(1)))
			Expect(logBuf.String()).To(ContainSubstring("0x999"))
			Expect(hook.positions()).To(ContainElement(HookPosUnknownCompletion))
		})
	})

	It("should log an unknown completion on an empty buffer without draining", func() {
		comp = build(64, 2)

		writeDone(1, 0x40, 3)

		Expect(comp.Stats().WriteBufferOccupied).To(BeZero())
		Expect(comp.Stats().UnknownCompletions).To(Equal(uint64(1)))
		Expect(logBuf.String()).To(ContainSubstring("not in the write buffer"))
	})

	It("should tick the memory system", func() {
		comp = build(64, 2)
		memSys.EXPECT().Tick().Times(3)

		comp.Tick()
		comp.Tick()
		comp.Tick()

		Expect(comp.Stats().Ticks).To(Equal(uint64(3)))
	})

	It("should forward power samples to hooks", func() {
		comp = build(64, 2)

		power(mem.PowerSample{Background: 1, Burst: 2})

		Expect(hook.records).To(HaveLen(1))
		Expect(hook.records[0].pos).To(BeIdenticalTo(HookPosPowerSample))
		Expect(hook.records[0].item.(mem.PowerSample).Total()).To(Equal(3.0))
	})

	It("should print the write buffer", func() {
		comp = build(64, 2)
		memSys.EXPECT().WillAcceptTransaction().Return(false)
		comp.Write(16, 0x40)
		buf := new(bytes.Buffer)

		comp.PrintWriteBuffer(buf)

		Expect(buf.String()).To(ContainSubstring("entry 0: address 0x40, size 16"))
	})

	It("should detach from the memory system on close", func() {
		comp = build(64, 2)
		memSys.EXPECT().RegisterCallbacks(nil, nil, nil)

		comp.Close()
		comp.Close()

		Expect(func() { comp.Read(64, 0x40) }).To(Panic())
		Expect(func() { comp.Tick() }).To(Panic())
		Expect(func() { comp.IsWriteBufferSlotFree(16) }).To(Panic())
	})
})
