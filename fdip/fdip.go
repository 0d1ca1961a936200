// Package fdip implements a Fetch-Directed Instruction Prefetcher: a
// component that streams ahead of the decoupled fetch front-end's
// consumer via a lookahead Iterator, issuing I-cache touches for ops the
// consumer has not reached yet, and reports how useful and timely those
// touches turned out to be so the front-end's adaptive FTQ-depth
// controller can react.
package fdip

import (
	"github.com/sarchlab/scarabfe/op"
	"github.com/sarchlab/scarabfe/timing/cache"
	"github.com/sarchlab/scarabfe/timing/decoupledfe"
)

// ICache is the narrow cache collaborator the prefetcher touches ahead of
// demand fetch. timing/cache.Cache satisfies this with its Read method.
type ICache interface {
	Read(addr uint64, size int) cache.AccessResult
}

// Iterable is the lookahead cursor the prefetcher advances; *decoupledfe.
// Context satisfies it.
type Iterable interface {
	NewIterator() *decoupledfe.Iterator
	Get(it *decoupledfe.Iterator) (o *op.Op, endOfFT bool, ok bool)
	Advance(it *decoupledfe.Iterator) (o *op.Op, endOfFT bool, ok bool)
}

// Prefetcher streams ahead of the consumer, advancing its iterator by up
// to Lookahead ops per Tick and touching the I-cache for each op address
// the first time it is seen. How far ahead of the consumer it gets is not
// bounded. It counts a touch as used, and as timely, when the consumer
// later fetches that address.
type Prefetcher struct {
	ctx       Iterable
	cache     ICache
	lookahead int

	it *decoupledfe.Iterator

	issued  uint64
	used    uint64
	timely  uint64
	touched map[uint64]bool

	lastConsumerAddr uint64
}

// New creates a Prefetcher that advances up to lookahead ops per Tick,
// touching cache for each newly-seen address.
func New(ctx Iterable, cache ICache, lookahead int) *Prefetcher {
	return &Prefetcher{
		ctx:       ctx,
		cache:     cache,
		lookahead: lookahead,
		it:        ctx.NewIterator(),
		touched:   make(map[uint64]bool),
	}
}

// Tick advances the prefetcher's lookahead iterator by up to lookahead
// ops from wherever it stands, regardless of the consumer's position,
// issuing one I-cache touch per newly-discovered op address.
func (p *Prefetcher) Tick() {
	o, _, ok := p.ctx.Get(p.it)
	if !ok {
		return
	}

	for i := 0; i < p.lookahead; i++ {
		if o == nil {
			break
		}
		if !p.touched[o.Addr] {
			p.touched[o.Addr] = true
			p.issued++
			p.cache.Read(o.Addr, int(o.Size))
		}
		o, _, ok = p.ctx.Advance(p.it)
		if !ok {
			break
		}
	}
}

// NotifyConsumed records that the consumer fetched addr, crediting the
// prefetch's utility and, if it happened before the cache line would have
// been evicted (approximated here as "was touched at all before demand"),
// its timeliness.
func (p *Prefetcher) NotifyConsumed(addr uint64) {
	p.lastConsumerAddr = addr
	if p.touched[addr] {
		p.used++
		p.timely++
	}
}

// SetCurrentOp implements decoupledfe.Prefetcher: it is called when the
// consumer's FTQ-pop lands exactly on this prefetcher's lookahead iterator
// head, per spec.md §4.5's FDIPBPConfidence gate, and records addr as the
// consumer's current address. It does not change the touch bookkeeping:
// addresses already touched are not touched again.
func (p *Prefetcher) SetCurrentOp(addr uint64) {
	if p.lastConsumerAddr == addr {
		return
	}
	p.lastConsumerAddr = addr
}

// UtilityTimelinessInfo computes the current utility and timeliness ratios
// to report to the adaptive FTQ-depth controller (spec.md §4.4, §6).
// Adjust is always true: the reference prefetcher requests an adjustment
// on every recovery it is consulted for.
func (p *Prefetcher) UtilityTimelinessInfo() decoupledfe.UtilityTimelinessInfo {
	info := decoupledfe.UtilityTimelinessInfo{Adjust: true}
	if p.issued > 0 {
		info.UtilityRatio = float64(p.used) / float64(p.issued)
		info.TimelinessRatio = float64(p.timely) / float64(p.issued)
	}
	return info
}

// Reset clears the prefetcher's touch bookkeeping, called alongside a
// front-end recovery since the stale touches no longer correspond to a
// valid instruction stream.
func (p *Prefetcher) Reset() {
	p.touched = make(map[uint64]bool)
	p.issued, p.used, p.timely = 0, 0, 0
}
