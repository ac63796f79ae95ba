package dramifc

import (
	"log"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramifc/mem/dram"
)

var _ = Describe("Comp with a DRAM memory system", func() {
	var (
		memSys *dram.MemorySystem
		comp   *Comp
	)

	build := func(bufBytes uint64, bufEntries int) {
		cfg := dram.DefaultConfig()
		cfg.Device.TREFI = 0

		memSys = dram.MakeBuilder().WithConfig(cfg).Build()
		comp = MakeBuilder().
			WithWriteBufferBytes(bufBytes).
			WithWriteBufferEntries(bufEntries).
			WithCPUCycleTimeNs(0.25).
			WithMemorySystem(memSys).
			WithLogger(log.New(GinkgoWriter, "", 0)).
			Build("Bridge")
	}

	It("should convert the read latency to processor cycles", func() {
		build(64, 2)

		Expect(comp.CycleMultiplier()).To(Equal(uint64(5)))
		Expect(comp.Read(64, 0)).To(Equal(uint64(27 * 5)))
		Expect(comp.Read(64, 64)).To(Equal(uint64(16 * 5)))
	})

	It("should only charge writes for waiting on buffer space", func() {
		build(64, 2)

		Expect(comp.Write(32, 0x00)).To(BeZero())
		Expect(comp.Write(32, 0x40)).To(BeZero())
		Expect(comp.Stats().WriteBufferOccupied).To(Equal(uint64(64)))

		Expect(comp.Write(32, 0x80)).To(Equal(uint64(24 * 5)))

		for i := 0; i < 1000; i++ {
			comp.Tick()
		}

		Expect(comp.Stats().WriteBufferOccupied).To(BeZero())
		Expect(memSys.NumPending()).To(BeZero())
	})

	It("should drain a write buffer larger than the transaction queue", func() {
		build(64*64, 64)

		for i := uint64(0); i < 40; i++ {
			Expect(comp.Write(64, i*64)).To(BeZero())
		}

		Expect(memSys.WillAcceptTransaction()).To(BeFalse())
		Expect(comp.Read(64, 0x10000)).To(BeNumerically(">", 0))

		for i := 0; i < 10000; i++ {
			comp.Tick()
		}

		Expect(comp.Stats().WriteBufferOccupied).To(BeZero())
		Expect(memSys.NumPending()).To(BeZero())
	})

	It("should keep the write buffer consistent under mixed traffic", func() {
		build(256, 4)
		r := rand.New(rand.NewSource(1))

		for i := 0; i < 500; i++ {
			addr := uint64(r.Intn(1<<16)) &^ 63
			size := uint64(32 + 32*r.Intn(2))

			switch r.Intn(3) {
			case 0:
				Expect(comp.Read(size, addr)).To(BeNumerically(">", 0))
			case 1:
				comp.Write(size, addr)
			default:
				comp.Tick()
			}

			sum := uint64(0)
			for _, e := range comp.WriteBufferEntries() {
				sum += e.Size
			}

			stats := comp.Stats()
			Expect(stats.WriteBufferOccupied).To(Equal(sum))
			Expect(stats.WriteBufferOccupied).To(
				BeNumerically("<=", stats.WriteBufferCapacity))
		}
	})
})
