package op_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/scarabfe/op"
)

var _ = Describe("CFType", func() {
	It("treats CFNone as not control flow", func() {
		Expect(op.CFNone.IsControlFlow()).To(BeFalse())
	})

	It("treats every other kind as control flow", func() {
		Expect(op.CFConditionalBranch.IsControlFlow()).To(BeTrue())
		Expect(op.CFUnconditionalBranch.IsControlFlow()).To(BeTrue())
		Expect(op.CFIndirectBranch.IsControlFlow()).To(BeTrue())
		Expect(op.CFCall.IsControlFlow()).To(BeTrue())
		Expect(op.CFReturn.IsControlFlow()).To(BeTrue())
	})
})

var _ = Describe("OracleInfo", func() {
	It("reports mispredicted when either recovery flag is set", func() {
		Expect(op.OracleInfo{RecoverAtDecode: true}.Mispredicted()).To(BeTrue())
		Expect(op.OracleInfo{RecoverAtExec: true}.Mispredicted()).To(BeTrue())
		Expect(op.OracleInfo{}.Mispredicted()).To(BeFalse())
	})
})

var _ = Describe("Op", func() {
	Describe("IsFetchBarrier", func() {
		It("is true for an explicit fetch barrier", func() {
			o := &op.Op{BarFetch: true}
			Expect(o.IsFetchBarrier()).To(BeTrue())
		})

		It("is true for a syscall", func() {
			o := &op.Op{Syscall: true}
			Expect(o.IsFetchBarrier()).To(BeTrue())
		})

		It("is false otherwise", func() {
			o := &op.Op{}
			Expect(o.IsFetchBarrier()).To(BeFalse())
		})
	})

	Describe("ClearRecovery", func() {
		It("clears both recovery flags", func() {
			o := &op.Op{Oracle: op.OracleInfo{RecoverAtDecode: true}}
			o.ClearRecovery()
			Expect(o.Oracle.RecoverAtDecode).To(BeFalse())
			Expect(o.Oracle.RecoverAtExec).To(BeFalse())
		})
	})
})

var _ = Describe("SlicePool", func() {
	var pool *op.SlicePool

	BeforeEach(func() {
		pool = op.NewSlicePool()
	})

	It("returns zeroed ops", func() {
		o := pool.Alloc()
		Expect(*o).To(Equal(op.Op{}))
	})

	It("tracks outstanding allocations", func() {
		a := pool.Alloc()
		pool.Alloc()
		Expect(pool.Outstanding()).To(Equal(uint64(2)))

		pool.Free(a)
		Expect(pool.Outstanding()).To(Equal(uint64(1)))
	})

	It("reuses freed ops zeroed out", func() {
		a := pool.Alloc()
		a.Addr = 0x1000
		pool.Free(a)

		b := pool.Alloc()
		Expect(b).To(BeIdenticalTo(a))
		Expect(b.Addr).To(Equal(uint64(0)))
	})
})
