package decoupledfe

import "github.com/sarchlab/scarabfe/op"

// Iterator is a lookahead cursor over the FTQ (spec.md §4.6), used by the
// FDIP prefetcher to stream ahead of the consumer without disturbing it.
// The zero value is a freshly created iterator at position (0,0,0).
type Iterator struct {
	ftPos          int
	opPos          int
	flattenedOpPos uint64
}

// Offset returns the iterator's flattened position: a running count of
// ops advanced past, across FTs. This is the primary offset exposed to
// prefetchers.
func (it *Iterator) Offset() uint64 { return it.flattenedOpPos }

// FTOffset returns the index of the FT the iterator currently sits on
// within the FTQ.
func (it *Iterator) FTOffset() int { return it.ftPos }

// NewIterator creates an iterator at (0,0,0) and registers it so it
// receives rebases on FT pops and resets on recovery.
func (c *Context) NewIterator() *Iterator {
	it := &Iterator{}
	c.iterators = append(c.iterators, it)
	return it
}

// Get returns the op at the iterator's current position and whether it is
// the last op of its FT. ok is false ("no op") when the FTQ is empty or
// the iterator has advanced one past the last FT (a legal "parked"
// position awaiting future FTs).
func (c *Context) Get(it *Iterator) (o *op.Op, endOfFT bool, ok bool) {
	if c.ftq.Empty() || it.ftPos == c.ftq.NumFTs() {
		invariant(!c.ftq.Empty() || (it.ftPos == 0 && it.opPos == 0 && it.flattenedOpPos == 0),
			"iterator drift on empty FTQ: ft_pos=%d op_pos=%d flattened=%d", it.ftPos, it.opPos, it.flattenedOpPos)
		return nil, false, false
	}

	ft := c.ftq.At(it.ftPos)
	invariant(it.opPos < ft.NumOps(), "iterator op_pos out of range: op_pos=%d num_ops=%d", it.opPos, ft.NumOps())

	endOfFT = it.opPos == ft.NumOps()-1
	return ft.ops[it.opPos], endOfFT, true
}

// Advance moves the iterator to the next op and returns it via Get's
// semantics. The special cases of spec.md §4.6 apply:
//   - at the last op of the last FT: park at (size, 0), flattened++, "no op"
//   - already parked: stay parked, "no op"
//   - at the last op of a non-last FT: move to next FT, op 0, flattened++
//   - otherwise: op_pos++, flattened++
func (c *Context) Advance(it *Iterator) (o *op.Op, endOfFT bool, ok bool) {
	numFTs := c.ftq.NumFTs()

	if it.ftPos == numFTs {
		// Already parked.
		invariant(it.opPos == 0, "parked iterator must have op_pos=0")
		return nil, false, false
	}

	ft := c.ftq.At(it.ftPos)
	atLastOp := it.opPos+1 == ft.NumOps()
	atLastFT := it.ftPos+1 == numFTs

	switch {
	case atLastOp && atLastFT:
		it.ftPos++
		it.opPos = 0
		it.flattenedOpPos++
		return nil, false, false
	case atLastOp:
		it.ftPos++
		it.opPos = 0
		it.flattenedOpPos++
	default:
		it.opPos++
		it.flattenedOpPos++
	}

	return c.Get(it)
}

// rebaseIteratorsOnPop adjusts every registered iterator after popped has
// been removed from the head of the FTQ (spec.md §4.5): iterators past
// the popped FT decrement ft_pos and shrink flattened_op_pos by the
// popped FT's op count; iterators standing on the popped FT reset to
// zero.
func (c *Context) rebaseIteratorsOnPop(popped *FT) {
	poppedOps := uint64(popped.NumOps())

	for _, it := range c.iterators {
		if it.ftPos > 0 {
			invariant(it.flattenedOpPos >= poppedOps,
				"iterator flattened_op_pos underflow on pop: flattened=%d popped_ops=%d",
				it.flattenedOpPos, poppedOps)
			it.flattenedOpPos -= poppedOps
			it.ftPos--
		} else {
			invariant(it.flattenedOpPos < poppedOps,
				"iterator standing on popped FT has out-of-range flattened_op_pos: flattened=%d popped_ops=%d",
				it.flattenedOpPos, poppedOps)
			it.flattenedOpPos = 0
			it.opPos = 0
		}
	}
}

// resetIterators zeroes every registered iterator, used on recovery.
func (c *Context) resetIterators() {
	for _, it := range c.iterators {
		it.ftPos = 0
		it.opPos = 0
		it.flattenedOpPos = 0
	}
}
