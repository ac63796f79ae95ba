package traceagent

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parse", func() {
	It("should parse reads, writes and idle ticks", func() {
		ops, err := Parse(strings.NewReader(`
# warm up
R 0x40 64
w 128 32   # lower case works
T 10

`))

		Expect(err).NotTo(HaveOccurred())
		Expect(ops).To(Equal([]Op{
			{Kind: OpRead, Addr: 0x40, Size: 64, Line: 3},
			{Kind: OpWrite, Addr: 128, Size: 32, Line: 4},
			{Kind: OpIdle, Ticks: 10, Line: 5},
		}))
	})

	It("should parse upper case hex", func() {
		ops, err := Parse(strings.NewReader("R 0XFF 8\n"))

		Expect(err).NotTo(HaveOccurred())
		Expect(ops[0].Addr).To(Equal(uint64(0xff)))
	})

	DescribeTable("should report the line of a bad op",
		func(trace, msg string) {
			_, err := Parse(strings.NewReader(trace))

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(msg))
		},
		Entry("unknown op", "R 0 64\nX 1 2\n", "line 2: unknown operation"),
		Entry("missing size", "W 0x40\n", "line 1: expected `W <addr> <size>`"),
		Entry("bad address", "R 0xZZ 64\n", "line 1: address"),
		Entry("zero size", "W 0 0\n", "line 1: size must be positive"),
		Entry("bad ticks", "T -1\n", "line 1: tick count"),
		Entry("extra ticks field", "T 1 2\n", "line 1: expected `T <ticks>`"),
	)

	It("should name op kinds", func() {
		Expect(OpRead.String()).To(Equal("R"))
		Expect(OpWrite.String()).To(Equal("W"))
		Expect(OpIdle.String()).To(Equal("T"))
		Expect(OpKind(9).String()).To(Equal("?"))
	})
})
