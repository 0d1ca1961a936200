package decoupledfe

import "github.com/sarchlab/scarabfe/op"

// Builder owns the currently-growing FT (spec.md §4.1). Freshly fetched
// ops are appended to it until a termination condition fires, at which
// point the producer pushes the completed FT to the FTQ and the builder
// starts a fresh one.
type Builder struct {
	cur FT
}

// NewBuilder creates a Builder with an empty, open FT.
func NewBuilder() *Builder {
	return &Builder{}
}

// Append adds o to the open FT. endedByHint is EndedByInit unless the
// caller has determined (via DetermineEndedBy) that this op terminates
// the FT. Returns the completed FT and true if the FT closed, or the zero
// FT and false if it remains open.
func (b *Builder) Append(o *op.Op, endedByHint EndedBy) (FT, bool) {
	b.cur.add(o, endedByHint)
	if endedByHint == EndedByInit {
		return FT{}, false
	}

	invariant(b.cur.IsPushable(), "FT closed but not pushable: start=%d length=%d ops=%d",
		b.cur.start, b.cur.length, len(b.cur.ops))

	done := b.cur
	b.cur = FT{}
	return done, true
}

// Reset discards the in-flight FT and its ops back to pool, used by
// recovery (spec.md §4.3 step 3).
func (b *Builder) Reset(pool op.Pool) {
	b.cur.freeOpsAndClear(pool)
}

// DetermineEndedBy implements the termination policy of spec.md §4.1,
// evaluated only on eom ops. Returns EndedByInit if none of the
// conditions apply and the FT should stay open.
//
// predictedTaken is the predictor's direction for this op, not the oracle's
// actual outcome (decoupled_frontend.cc:349, "cf_taken = cf_type && op->
// oracle_info.pred == TAKEN"): the front-end only ever sees what it predicted,
// so a mispredicted conditional branch must still close (or not close) the FT
// based on what was predicted, not on what the op actually resolves to.
//
// The I-cache-line-boundary check uses the op's own address rounded down
// to lineSize as the line base (matching the original source's
// ROUND_DOWN(op->inst_info->addr, ICACHE_LINE_SIZE)): an op that crosses
// or fills the line it starts in closes the FT, even mid-FT.
func DetermineEndedBy(o *op.Op, lineSize uint64, predictedTaken bool) EndedBy {
	if !o.EOM {
		return EndedByInit
	}

	switch {
	case o.Exit:
		return EndedByAppExit
	case o.IsFetchBarrier():
		return EndedByBarFetch
	case o.CFType.IsControlFlow() && predictedTaken:
		return EndedByTakenBranch
	}

	lineBase := o.Addr - (o.Addr % lineSize)
	end := o.Addr + uint64(o.Size)
	if end-lineBase >= lineSize {
		return EndedByICacheLineBoundary
	}
	return EndedByInit
}
