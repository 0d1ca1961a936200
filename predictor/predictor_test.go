package predictor_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/scarabfe/op"
	"github.com/sarchlab/scarabfe/predictor"
)

var _ = Describe("Bimodal", func() {
	var bp *predictor.Bimodal

	BeforeEach(func() {
		bp = predictor.New(predictor.Config{BHTSize: 16, BTBSize: 8})
	})

	It("initially predicts weakly taken and falls back to the oracle NPC on a BTB miss", func() {
		o := &op.Op{Addr: 0x1000, Size: 4, Oracle: op.OracleInfo{NPC: 0x2000}}
		pred := bp.Predict(o, 0, 0x1000)
		Expect(pred).To(Equal(uint64(0x2000)))
	})

	It("predicts fall-through once trained not-taken", func() {
		pc := uint64(0x1000)
		for i := 0; i < 4; i++ {
			bp.Update(pc, false, 0)
		}
		o := &op.Op{Addr: pc, Size: 4}
		pred := bp.Predict(o, 0, pc)
		Expect(pred).To(Equal(pc + 4))
	})

	It("predicts the learned BTB target once trained taken", func() {
		pc := uint64(0x1000)
		target := uint64(0x3000)
		for i := 0; i < 4; i++ {
			bp.Update(pc, true, target)
		}
		o := &op.Op{Addr: pc, Size: 4, Oracle: op.OracleInfo{NPC: target}}
		pred := bp.Predict(o, 0, pc)
		Expect(pred).To(Equal(target))
	})

	Describe("IsPredictable", func() {
		It("is unlimited by default", func() {
			for i := 0; i < 100; i++ {
				Expect(bp.IsPredictable()).To(BeTrue())
				bp.Predict(&op.Op{}, 0, 0)
			}
		})

		It("honors a per-cycle limit until ResetCycle", func() {
			limited := predictor.New(predictor.Config{PredictionsPerCycle: 2})
			Expect(limited.IsPredictable()).To(BeTrue())
			limited.Predict(&op.Op{}, 0, 0)
			Expect(limited.IsPredictable()).To(BeTrue())
			limited.Predict(&op.Op{}, 1, 0)
			Expect(limited.IsPredictable()).To(BeFalse())

			limited.ResetCycle()
			Expect(limited.IsPredictable()).To(BeTrue())
		})
	})
})
