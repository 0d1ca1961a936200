package decoupledfe

// Recover implements the misprediction-recovery procedure of spec.md §4.3,
// invoked once the execution core has resolved a mispredicted op and
// determined the oracle-correct redirect target. The steps run in the
// exact order the original source does, since later steps depend on state
// the earlier ones reset (e.g. the off-path cycle count is taken from the
// redirect cycle before that is cleared, and the front-end's next fetch
// address is checked only after the front-end has been rewound).
func (c *Context) Recover(info RecoveryInfo) {
	c.offPath = false
	c.schedOffPath = false
	c.recoveryAddr = info.RecoveryAddr

	for i := range c.ftq.fts {
		c.ftq.fts[i].freeOpsAndClear(c.pool)
	}
	c.ftq.Clear()

	c.builder.Reset(c.pool)
	c.inUse.freeOpsAndClear(c.pool)

	c.opCount = info.RecoveryOpNum + 1

	c.resetIterators()

	if c.cfg.FDIPAdjustableFTQ != AdjustableFTQDisabled && c.utilTimeliness.Adjust {
		c.ftqDepth = adjustDepth(c.cfg, c.ftqDepth, &c.utilTimeliness)
	}

	c.stalled = false

	kind := RecoverExec
	if info.Op != nil && info.Op.Oracle.RecoverAtDecode {
		kind = RecoverDecode
	}

	invariant(c.cycle > c.redirectCyc, "recovery cycle %d is not after redirect cycle %d", c.cycle, c.redirectCyc)
	offPathCycles := c.cycle - c.redirectCyc
	c.redirectCyc = 0

	c.stats.InvokeHook(hookCtx(c.stats, HookPosRecover, &RecoverEvent{
		Kind:          kind,
		OffPathCycles: offPathCycles,
		NewAddr:       info.RecoveryAddr,
	}))

	c.front.Recover(info.RecoveryInstUID)
	invariant(info.RecoveryAddr == c.front.NextFetchAddr(),
		"recovery address 0x%x does not match front-end's next fetch address 0x%x",
		info.RecoveryAddr, c.front.NextFetchAddr())
}

// ReportUtilityTimeliness records the FDIP prefetcher's current
// utility/timeliness ratios for the adaptive-depth controller to consume
// on the next recovery (spec.md §4.4, §6).
func (c *Context) ReportUtilityTimeliness(info UtilityTimelinessInfo) {
	c.utilTimeliness = info
}

// FTQDepth returns the current adaptive (or fixed) FTQ depth bound.
func (c *Context) FTQDepth() uint64 { return c.ftqDepth }
