package decoupledfe_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/scarabfe/frontend"
	"github.com/sarchlab/scarabfe/op"
	"github.com/sarchlab/scarabfe/predictor"
	"github.com/sarchlab/scarabfe/timing/decoupledfe"
)

func straightLineEntries(base uint64, n int) []frontend.Entry {
	entries := make([]frontend.Entry, n)
	for i := 0; i < n; i++ {
		addr := base + uint64(i*4)
		entries[i] = frontend.Entry{
			Addr: addr, Size: 4, BOM: true, EOM: true,
			InstUID: uint64(i),
			Oracle:  op.OracleInfo{NPC: addr + 4},
		}
	}
	return entries
}

var _ = Describe("Context.Tick", func() {
	var (
		pool *op.SlicePool
		pred *predictor.Bimodal
	)

	BeforeEach(func() {
		pool = op.NewSlicePool()
		pred = predictor.New(predictor.DefaultConfig())
	})

	It("breaks on the bytes-per-cycle limit before closing the in-flight FT", func() {
		cfg := decoupledfe.DefaultConfig()
		cfg.BytesPerCycle = 8
		cfg.ICacheLineSize = 64

		trace := frontend.NewTrace(straightLineEntries(0x1000, 4))
		ctx := decoupledfe.NewContext(cfg, pool, trace, pred)

		ctx.Tick()

		Expect(ctx.Stats().FetchedInsOnPath).To(Equal(uint64(2)))
		Expect(ctx.Stats().Break(decoupledfe.BreakBytesLimit, true)).To(Equal(uint64(1)))
		Expect(ctx.CanFetchOp()).To(BeFalse(), "the in-flight FT has not closed yet")
	})

	It("closes the FT and breaks on the taken-CF limit for a taken branch", func() {
		cfg := decoupledfe.DefaultConfig()
		cfg.BytesPerCycle = 256
		cfg.TakenCFsPerCycle = 1
		cfg.ICacheLineSize = 64

		entries := []frontend.Entry{
			{
				Addr: 0x1000, Size: 4, BOM: true, EOM: true, InstUID: 0,
				CFType: op.CFUnconditionalBranch,
				Oracle: op.OracleInfo{NPC: 0x2000, Taken: true},
			},
			{
				Addr: 0x2000, Size: 4, BOM: true, EOM: true, InstUID: 1,
				Oracle: op.OracleInfo{NPC: 0x2004},
			},
		}
		trace := frontend.NewTrace(entries)
		ctx := decoupledfe.NewContext(cfg, pool, trace, pred)

		ctx.Tick()

		Expect(ctx.Stats().FetchedInsOnPath).To(Equal(uint64(1)))
		Expect(ctx.Stats().Break(decoupledfe.BreakTakenCFLimit, true)).To(Equal(uint64(1)))
		Expect(ctx.CanFetchFT()).To(BeTrue())

		_, length, ok := ctx.FetchFT()
		Expect(ok).To(BeTrue())
		Expect(length).To(Equal(uint64(4)))
	})

	It("stalls on a fetch barrier until Retire clears it", func() {
		cfg := decoupledfe.DefaultConfig()
		cfg.BytesPerCycle = 256
		cfg.ICacheLineSize = 64
		// A fetch barrier also counts toward the taken-CF-per-cycle limit
		// (spec.md §4.1); raise it so the barrier-stall break isn't masked
		// by the taken-CF-limit break firing first.
		cfg.TakenCFsPerCycle = 2

		entries := []frontend.Entry{
			{Addr: 0x1000, Size: 4, BOM: true, EOM: true, BarFetch: true, InstUID: 0, Oracle: op.OracleInfo{NPC: 0x1004}},
			{Addr: 0x1004, Size: 4, BOM: true, EOM: true, InstUID: 1, Oracle: op.OracleInfo{NPC: 0x1008}},
		}
		trace := frontend.NewTrace(entries)
		ctx := decoupledfe.NewContext(cfg, pool, trace, pred)

		ctx.Tick()
		Expect(ctx.Stats().Break(decoupledfe.BreakFetchBarrierStall, true)).To(Equal(uint64(1)))

		ctx.Tick()
		Expect(ctx.Stats().FetchedInsOnPath).To(Equal(uint64(1)), "the stall must still hold the second op back")

		o, _, ok := ctx.FetchOp()
		Expect(ok).To(BeTrue())
		ctx.Retire(o, o.InstUID)

		ctx.Tick()
		Expect(ctx.Stats().FetchedInsOnPath).To(Equal(uint64(2)), "retiring the barrier should unstall fetch")
	})

	It("aborts via the forward-progress watchdog when the front-end never yields an op", func() {
		cfg := decoupledfe.DefaultConfig()
		cfg.WatchdogTicks = 3

		trace := frontend.NewTrace(nil) // CanFetchOp() is always false
		ctx := decoupledfe.NewContext(cfg, pool, trace, pred)

		Expect(func() {
			for i := 0; i < 10; i++ {
				ctx.Tick()
			}
		}).To(Panic())
	})
})
