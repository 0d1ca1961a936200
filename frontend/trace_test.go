package frontend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/scarabfe/frontend"
	"github.com/sarchlab/scarabfe/op"
)

var _ = Describe("Trace", func() {
	var trc *frontend.Trace

	BeforeEach(func() {
		trc = frontend.NewTrace([]frontend.Entry{
			{Addr: 0x1000, Size: 4, BOM: true, EOM: true, InstUID: 0},
			{Addr: 0x1004, Size: 4, BOM: true, EOM: true, InstUID: 1},
			{Addr: 0x1008, Size: 4, BOM: true, EOM: true, InstUID: 2},
		})
	})

	It("fetches entries in order and fills the op fields", func() {
		Expect(trc.CanFetchOp()).To(BeTrue())

		var o op.Op
		trc.FetchOp(&o)
		Expect(o.Addr).To(Equal(uint64(0x1000)))
		Expect(o.InstUID).To(Equal(uint64(0)))

		Expect(trc.NextFetchAddr()).To(Equal(uint64(0x1004)))
	})

	It("reports exhausted once every entry has been fetched", func() {
		var o op.Op
		for trc.CanFetchOp() {
			trc.FetchOp(&o)
		}
		Expect(trc.CanFetchOp()).To(BeFalse())
		Expect(trc.NextFetchAddr()).To(Equal(uint64(0x100c)), "one past the last entry")
	})

	It("seeks forward to a redirect target", func() {
		trc.Redirect(0, 0x1008)
		Expect(trc.NextFetchAddr()).To(Equal(uint64(0x1008)))
	})

	It("wraps around to find a target behind the current position", func() {
		var o op.Op
		trc.FetchOp(&o) // pos now 1
		trc.FetchOp(&o) // pos now 2
		trc.Redirect(0, 0x1000)
		Expect(trc.NextFetchAddr()).To(Equal(uint64(0x1000)))
	})

	It("panics when redirected to an address absent from the trace", func() {
		Expect(func() { trc.Redirect(0, 0xdead) }).To(Panic())
	})

	It("recovers by instruction UID", func() {
		trc.Redirect(0, 0x1008)
		trc.Recover(1)
		Expect(trc.NextFetchAddr()).To(Equal(uint64(0x1004)))
	})

	It("panics recovering to an unknown instruction UID", func() {
		Expect(func() { trc.Recover(99) }).To(Panic())
	})
})
