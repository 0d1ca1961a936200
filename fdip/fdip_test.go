package fdip_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/scarabfe/fdip"
	"github.com/sarchlab/scarabfe/frontend"
	"github.com/sarchlab/scarabfe/op"
	"github.com/sarchlab/scarabfe/predictor"
	"github.com/sarchlab/scarabfe/timing/cache"
	"github.com/sarchlab/scarabfe/timing/decoupledfe"
)

type spyCache struct {
	reads []uint64
}

func (c *spyCache) Read(addr uint64, size int) cache.AccessResult {
	c.reads = append(c.reads, addr)
	return cache.AccessResult{Hit: false}
}

func straightLine(base uint64, n int) []frontend.Entry {
	entries := make([]frontend.Entry, n)
	for i := 0; i < n; i++ {
		addr := base + uint64(i*4)
		entries[i] = frontend.Entry{
			Addr: addr, Size: 4, BOM: true, EOM: true,
			InstUID: uint64(i), Oracle: op.OracleInfo{NPC: addr + 4},
		}
	}
	return entries
}

var _ = Describe("Prefetcher", func() {
	var (
		ctx *decoupledfe.Context
		c   *spyCache
	)

	BeforeEach(func() {
		cfg := decoupledfe.DefaultConfig()
		cfg.ICacheLineSize = 16
		cfg.BytesPerCycle = 64

		pool := op.NewSlicePool()
		pred := predictor.New(predictor.DefaultConfig())
		trace := frontend.NewTrace(straightLine(0x1000, 8))
		ctx = decoupledfe.NewContext(cfg, pool, trace, pred)
		ctx.Tick()

		c = &spyCache{}
	})

	It("touches up to lookahead distinct addresses per tick", func() {
		p := fdip.New(ctx, c, 3)
		p.Tick()

		Expect(c.reads).To(Equal([]uint64{0x1000, 0x1004, 0x1008}))

		info := p.UtilityTimelinessInfo()
		Expect(info.Adjust).To(BeTrue())
		Expect(info.UtilityRatio).To(BeNumerically("==", 0))
	})

	It("credits utility and timeliness only for touched addresses", func() {
		p := fdip.New(ctx, c, 3)
		p.Tick()

		p.NotifyConsumed(0x1000)
		p.NotifyConsumed(0x9999) // never touched, must not be credited

		info := p.UtilityTimelinessInfo()
		Expect(info.UtilityRatio).To(BeNumerically("~", 1.0/3.0, 0.001))
		Expect(info.TimelinessRatio).To(BeNumerically("~", 1.0/3.0, 0.001))
	})

	It("stops touching once the lookahead iterator runs out of queued ops", func() {
		p := fdip.New(ctx, c, 3)
		for i := 0; i < 4; i++ {
			p.Tick()
		}
		Expect(c.reads).To(HaveLen(8), "all 8 fetched ops should have been touched exactly once")

		p.Tick() // parked past the last FT: must be a no-op, not a panic
		Expect(c.reads).To(HaveLen(8))
	})

	It("clears touch bookkeeping and ratios on Reset", func() {
		p := fdip.New(ctx, c, 3)
		p.Tick()
		p.NotifyConsumed(0x1000)

		p.Reset()

		info := p.UtilityTimelinessInfo()
		Expect(info.UtilityRatio).To(BeNumerically("==", 0))
		Expect(info.TimelinessRatio).To(BeNumerically("==", 0))
	})
})
