package decoupledfe

import "github.com/sarchlab/scarabfe/op"

// CanFetchFT reports whether the FTQ has a completed fetch target the
// consumer can pull (spec.md §12's restored FT-granularity API).
func (c *Context) CanFetchFT() bool { return !c.ftq.Empty() }

// FetchFT pops the head FT into the in-use slot, rebases every registered
// iterator to account for the pop, and — when Config.FDIPBPConfidence is
// set — notifies the wired Prefetcher so it can re-anchor on the new head
// op. Returns the FT's start address and byte length.
func (c *Context) FetchFT() (start uint64, length uint64, ok bool) {
	if c.ftq.Empty() {
		return 0, 0, false
	}

	if c.cfg.FDIPBPConfidence && c.prefetch != nil {
		for _, it := range c.iterators {
			if it.ftPos == 0 && it.opPos == 0 {
				invariant(it.flattenedOpPos == 0, "iterator at (0,0) must have flattened_op_pos==0")
				c.prefetch.SetCurrentOp(c.ftq.At(0).ops[0].Addr)
			}
		}
	}

	popped := c.ftq.PopFront()
	c.rebaseIteratorsOnPop(&popped)

	c.inUse = popped
	return popped.Start(), popped.Length(), true
}

// CanFetchOp reports whether the consumer can pull another op, either from
// the in-use FT or by first pulling a new FT from the FTQ (spec.md §4.5).
func (c *Context) CanFetchOp() bool {
	return c.inUse.canFetchOp() || c.CanFetchFT()
}

// FetchOp delivers the next op to the consumer, transparently advancing to
// the next FT when the in-use FT is exhausted.
func (c *Context) FetchOp() (o *op.Op, endOfFT bool, ok bool) {
	if !c.inUse.canFetchOp() {
		if !c.CanFetchFT() {
			return nil, false, false
		}
		if _, _, fetched := c.FetchFT(); !fetched {
			return nil, false, false
		}
	}

	invariant(c.inUse.canFetchOp(), "in-use FT must be fetchable right after FetchFT")
	return c.inUse.fetchOp()
}

// ReturnOp undoes the most recent FetchOp against the in-use FT.
func (c *Context) ReturnOp(o *op.Op) {
	c.inUse.returnOp(o)
}

// NextFetchAddr returns the address the consumer will deliver next: the
// in-use FT's head if non-empty, else the FTQ head's start, else the
// front-end's own next fetch address when the FTQ is entirely empty.
func (c *Context) NextFetchAddr() uint64 {
	if c.ftq.Empty() && !c.inUse.canFetchOp() {
		return c.front.NextFetchAddr()
	}
	if c.inUse.canFetchOp() {
		return c.inUse.ops[c.inUse.readCursor].Addr
	}
	front := c.ftq.Front()
	invariant(front != nil && len(front.ops) > 0, "FTQ head must have ops when non-empty")
	return front.ops[0].Addr
}

// Retire notifies the front-end that an instruction retired, and clears a
// pending fetch-barrier stall if the retiring op was the one that caused
// it.
func (c *Context) Retire(o *op.Op, instUID uint64) {
	if o.IsFetchBarrier() {
		c.stalled = false
	}
	c.front.Retire(instUID)
}
