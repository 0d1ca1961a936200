package decoupledfe

import (
	"github.com/sarchlab/scarabfe/op"
	"github.com/sarchlab/scarabfe/predictor"
)

// FrontEnd is the narrow external instruction source the producer pulls
// from (spec.md §6). An execution-driven adapter, a trace reader, or a
// memtrace reader all satisfy this interface; the decoupled front-end
// itself is agnostic to which one is plugged in.
type FrontEnd interface {
	// CanFetchOp reports whether the front-end has an op ready at its
	// current fetch address.
	CanFetchOp() bool

	// FetchOp fills in o's Addr, Size, BOM, EOM, CFType, BarFetch, Syscall,
	// Oracle, Exit fields from the instruction at the current fetch
	// address, and advances the front-end's internal fetch address.
	FetchOp(o *op.Op)

	// Redirect steers the front-end's fetch address to addr following a
	// branch prediction, tagged with the instruction UID that caused it.
	Redirect(instUID uint64, addr uint64)

	// Recover steers the front-end back to the oracle-correct instruction
	// stream following a misprediction, identified by instUID.
	Recover(instUID uint64)

	// NextFetchAddr returns the address the front-end will fetch from next.
	NextFetchAddr() uint64

	// Retire notifies the front-end that the instruction with the given
	// UID has retired, unblocking an execution-driven front-end stalled on
	// it.
	Retire(instUID uint64)
}

// RecoveryInfo describes the misprediction the producer must recover from
// (spec.md §4.3), equivalent to the original source's bp_recovery_info.
type RecoveryInfo struct {
	Op              *op.Op
	RecoveryInstUID uint64
	RecoveryOpNum   uint64
	RecoveryAddr    uint64
}

// Context is the explicit per-core state of one decoupled front-end
// instance (spec.md §9's design note: state is modeled as an instance
// rather than a set of parallel global arrays indexed by core).
type Context struct {
	cfg *Config

	ftq     FTQ
	builder *Builder
	inUse   FT

	iterators []*Iterator

	pool      op.Pool
	front     FrontEnd
	predictor predictor.Predictor
	prefetch  Prefetcher

	stats *Stats

	utilTimeliness UtilityTimelinessInfo

	offPath      bool
	schedOffPath bool
	stalled      bool

	opCount      uint64
	recoveryAddr uint64
	redirectCyc  uint64
	cycle        uint64

	ftqDepth uint64

	noProgressTicks uint64
}

// NewContext creates a Context wired to the given pool, front-end adapter,
// and predictor, using cfg (or DefaultConfig if nil).
func NewContext(cfg *Config, pool op.Pool, front FrontEnd, pred predictor.Predictor) *Context {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Context{
		cfg:       cfg,
		builder:   NewBuilder(),
		pool:      pool,
		front:     front,
		predictor: pred,
		stats:     NewStats(),
		opCount:   1,
		ftqDepth:  cfg.BlockNum,
	}
}

// SetPrefetcher wires an optional FDIP prefetcher notified when the
// consumer's in-use FT is popped and Config.FDIPBPConfidence is set.
func (c *Context) SetPrefetcher(p Prefetcher) { c.prefetch = p }

// Stats returns the accumulated statistics and hook plumbing.
func (c *Context) Stats() *Stats { return c.stats }

// OffPath reports whether the front-end currently believes it is fetching
// down a mispredicted path.
func (c *Context) OffPath() bool { return c.offPath }

// Tick runs one producer cycle: it fetches ops from the front-end and
// appends them to the in-flight FT, pushing completed FTs to the FTQ,
// until one of the break conditions of spec.md §4.2 fires. The break
// conditions are evaluated in priority order every iteration of the inner
// loop, exactly matching that order, since later conditions may become
// true only as a side effect of an earlier iteration (e.g. the FTQ
// becoming full after a push).
func (c *Context) Tick() {
	c.cycle++
	c.stats.RecordCycle(!c.offPath)

	var (
		cfsTakenThisCycle uint64
		bytesThisCycle    uint64
		cfIndex           int
		progressed        bool
	)

	c.predictorResetCycle()

	for {
		if uint64(c.ftq.NumFTs()) == c.ftqDepth {
			c.emitBreak(BreakFTQDepthFull)
			break
		}
		if cfsTakenThisCycle == c.cfg.TakenCFsPerCycle {
			c.emitBreak(BreakTakenCFLimit)
			break
		}
		if bytesThisCycle >= c.cfg.BytesPerCycle {
			c.emitBreak(BreakBytesLimit)
			break
		}
		if !c.predictor.IsPredictable() {
			c.emitBreak(BreakPredictorBusy)
			break
		}
		if c.stalled {
			c.emitBreak(BreakFetchBarrierStall)
			break
		}
		if !c.front.CanFetchOp() {
			c.emitBreak(BreakFrontendCantFetch)
			break
		}

		progressed = true
		o := c.pool.Alloc()
		c.front.FetchOp(o)
		o.OpNum = c.opCount
		c.opCount++
		o.OffPath = c.offPath

		var predAddr uint64
		var predictedTaken bool
		if o.CFType.IsControlFlow() {
			invariant(o.EOM, "control-flow op must be eom")
			predAddr = c.predictor.Predict(o, cfIndex, o.Addr)
			predictedTaken = predAddr != o.Addr+uint64(o.Size)
			cfIndex++

			if o.IsFetchBarrier() {
				o.ClearRecovery()
				c.stall()
			}

			switch {
			case o.Oracle.Mispredicted():
				invariant(!(o.Oracle.RecoverAtDecode && o.Oracle.RecoverAtExec),
					"op cannot recover at both decode and exec")
				if c.offPath {
					// Scarab cannot recover out-of-order: an older op may
					// recover at exec after a younger one already recovered
					// at decode. Suppress the redundant recovery rather
					// than schedule it.
					o.ClearRecovery()
				}
				c.offPath = true
				c.front.Redirect(o.InstUID, predAddr)
				c.redirectCyc = c.cycle
			case (c.cfg.Mode == FrontendTrace || c.cfg.Mode == FrontendMemtrace) && c.offPath && o.Oracle.Taken:
				c.front.Redirect(o.InstUID, predAddr)
			}
		} else {
			invariant(!o.Oracle.Mispredicted(), "non-control-flow op cannot carry a recovery flag")
			if o.IsFetchBarrier() {
				c.stall()
			}
		}

		endedBy := EndedByInit
		if o.EOM {
			endedBy = DetermineEndedBy(o, c.cfg.ICacheLineSize, predictedTaken)
			bytesThisCycle += uint64(o.Size)
			if endedBy == EndedByTakenBranch || endedBy == EndedByBarFetch {
				cfsTakenThisCycle++
			}
		}

		c.emitFetch(o)

		completed, closed := c.builder.Append(o, endedBy)
		if closed {
			c.ftq.Push(completed)
		}

		c.stats.RecordFetch(!o.OffPath)

		if c.recoveryAddr != 0 {
			invariant(c.recoveryAddr == o.Addr,
				"recovery sanity check failed: expected 0x%x, fetched 0x%x", c.recoveryAddr, o.Addr)
			c.recoveryAddr = 0
		}
	}

	if progressed {
		c.noProgressTicks = 0
	} else {
		c.noProgressTicks++
		invariant(c.noProgressTicks < c.cfg.WatchdogTicks,
			"decoupled front-end made no forward progress for %d consecutive cycles", c.cfg.WatchdogTicks)
	}
}

func (c *Context) stall() { c.stalled = true }

func (c *Context) predictorResetCycle() {
	type cycleResetter interface{ ResetCycle() }
	if r, ok := c.predictor.(cycleResetter); ok {
		r.ResetCycle()
	}
}

func (c *Context) emitBreak(reason BreakReason) {
	c.stats.InvokeHook(hookCtx(c.stats, HookPosFTQBreak, &BreakEvent{Reason: reason, OnPath: !c.offPath}))
}

func (c *Context) emitFetch(o *op.Op) {
	c.stats.InvokeHook(hookCtx(c.stats, HookPosFetch, o))
}
