package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CycleConverter", func() {
	It("should compute the multiplier", func() {
		c, err := NewCycleConverter(1.5, 0.5)

		Expect(err).ToNot(HaveOccurred())
		Expect(c.Multiplier()).To(Equal(uint64(3)))
		Expect(c.EnginePeriodNs()).To(Equal(1.5))
		Expect(c.ProcessorPeriodNs()).To(Equal(0.5))
	})

	It("should accept equal periods", func() {
		c, err := NewCycleConverter(1.25, 1.25)

		Expect(err).ToNot(HaveOccurred())
		Expect(c.Multiplier()).To(Equal(uint64(1)))
	})

	It("should not be fooled by floating point periods", func() {
		c, err := NewCycleConverter(0.3, 0.1)

		Expect(err).ToNot(HaveOccurred())
		Expect(c.Multiplier()).To(Equal(uint64(3)))
	})

	DescribeTable("should reject non-integral ratios",
		func(engine, processor float64) {
			_, err := NewCycleConverter(engine, processor)
			Expect(err).To(HaveOccurred())
		},
		Entry("1.5 / 0.4", 1.5, 0.4),
		Entry("1.25 / 1.0", 1.25, 1.0),
		Entry("engine faster than processor", 0.5, 1.0),
	)

	DescribeTable("should reject invalid periods",
		func(engine, processor float64) {
			_, err := NewCycleConverter(engine, processor)
			Expect(err).To(HaveOccurred())
		},
		Entry("zero processor period", 1.5, 0.0),
		Entry("negative engine period", -1.5, 0.5),
		Entry("sub-picosecond period", 1.5, 0.0001),
	)

	It("should convert engine cycles to processor cycles", func() {
		c, err := NewCycleConverter(1.25, 0.25)
		Expect(err).ToNot(HaveOccurred())

		for _, n := range []uint64{0, 1, 7, 1000, 123456} {
			Expect(c.ToProcessorCycles(n)).To(Equal(n * 5))
		}
	})
})
