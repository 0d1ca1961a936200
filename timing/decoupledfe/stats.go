package decoupledfe

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
)

// Hook positions the decoupled front-end fires on. Consumers attach hooks
// via Stats.AcceptHook to observe producer breaks, recoveries, and fetches
// without the front-end depending on any particular stats backend.
var (
	// HookPosFTQBreak fires once per producer tick, when a break condition
	// (including the BytesPerCycle limit) stops fetching, with Detail
	// holding a *BreakEvent.
	HookPosFTQBreak = &sim.HookPos{Name: "DecoupledFE.FTQBreak"}

	// HookPosRecover fires once per recovery, with Detail holding a
	// *RecoverEvent.
	HookPosRecover = &sim.HookPos{Name: "DecoupledFE.Recover"}

	// HookPosFetch fires once per op the producer appends to the in-flight
	// FT, with Detail holding the fetched *op.Op.
	HookPosFetch = &sim.HookPos{Name: "DecoupledFE.Fetch"}
)

// BreakReason names why the producer stopped fetching in a given cycle
// (spec.md §4.2), used both for HookPosFTQBreak and as the Stats counter
// key.
type BreakReason uint8

// Producer break reasons, in the priority order they are evaluated.
const (
	BreakFTQDepthFull BreakReason = iota
	BreakTakenCFLimit
	BreakBytesLimit
	BreakPredictorBusy
	BreakFetchBarrierStall
	BreakFrontendCantFetch
)

// String implements fmt.Stringer. The five named reasons render the exact
// tokens spec.md §6's statistics contract requires (decoupled_frontend.cc's
// FTQ_BREAK reason strings); names are contracts, not debug labels.
func (r BreakReason) String() string {
	switch r {
	case BreakFTQDepthFull:
		return "FULL_FT"
	case BreakTakenCFLimit:
		return "MAX_CFS_TAKEN"
	case BreakBytesLimit:
		return "MAX_BYTES"
	case BreakPredictorBusy:
		return "PRED_BR"
	case BreakFetchBarrierStall:
		return "BAR_FETCH"
	case BreakFrontendCantFetch:
		return "FRONTEND_CANT_FETCH"
	default:
		return "UNKNOWN"
	}
}

// BreakEvent is the Detail payload of HookPosFTQBreak.
type BreakEvent struct {
	Reason BreakReason
	OnPath bool
}

// RecoverKind distinguishes where a redirect originated (spec.md §4.3).
type RecoverKind uint8

// Recovery kinds.
const (
	RecoverDecode RecoverKind = iota
	RecoverExec
)

// String implements fmt.Stringer.
func (k RecoverKind) String() string {
	if k == RecoverDecode {
		return "DECODE"
	}
	return "EXEC"
}

// RecoverEvent is the Detail payload of HookPosRecover.
type RecoverEvent struct {
	Kind         RecoverKind
	OffPathCycles uint64
	NewAddr      uint64
}

type breakKey struct {
	reason BreakReason
	onPath bool
}

// hookCtx builds a sim.HookCtx for one of this package's named hook
// positions, with domain (the firing Context's Stats) as Domain and the
// given value as Detail.
func hookCtx(domain sim.Hookable, pos *sim.HookPos, detail interface{}) sim.HookCtx {
	return sim.HookCtx{Domain: domain, Pos: pos, Detail: detail}
}

// Stats accumulates the counters named in spec.md §6's statistics
// contract and doubles as an Akita Hookable so callers can attach
// arbitrary observers (e.g. a trace writer) at the named hook positions
// without Stats itself knowing about them.
type Stats struct {
	*sim.HookableBase

	CyclesOnPath  uint64
	CyclesOffPath uint64

	FetchedInsOnPath  uint64
	FetchedInsOffPath uint64

	RecoverDecodeCount uint64
	RecoverExecCount   uint64
	OffPathCycles      uint64

	breaks map[breakKey]uint64
}

// NewStats creates a zeroed Stats and registers its own built-in counting
// hook at every position so the named counters stay populated even if the
// caller never attaches anything else.
func NewStats() *Stats {
	s := &Stats{
		HookableBase: sim.NewHookableBase(),
		breaks:       make(map[breakKey]uint64),
	}
	s.AcceptHook(s)
	return s
}

// Func implements sim.Hook so Stats can observe its own events through the
// same hook plumbing external observers use.
func (s *Stats) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosFTQBreak:
		ev := ctx.Detail.(*BreakEvent)
		s.breaks[breakKey{ev.Reason, ev.OnPath}]++
	case HookPosRecover:
		ev := ctx.Detail.(*RecoverEvent)
		if ev.Kind == RecoverDecode {
			s.RecoverDecodeCount++
		} else {
			s.RecoverExecCount++
		}
		s.OffPathCycles += ev.OffPathCycles
	}
}

// RecordCycle increments the on/off-path cycle counter for one producer
// tick.
func (s *Stats) RecordCycle(onPath bool) {
	if onPath {
		s.CyclesOnPath++
	} else {
		s.CyclesOffPath++
	}
}

// RecordFetch increments the fetched-instruction counter for one op the
// producer fetched from the front-end.
func (s *Stats) RecordFetch(onPath bool) {
	if onPath {
		s.FetchedInsOnPath++
	} else {
		s.FetchedInsOffPath++
	}
}

// Break returns the number of producer-tick breaks recorded for
// reason/onPath.
func (s *Stats) Break(reason BreakReason, onPath bool) uint64 {
	return s.breaks[breakKey{reason, onPath}]
}

// Report renders the stat-name contract of spec.md §6 as a flat
// name->value map, suitable for the teacher's profiling/reporting tools.
func (s *Stats) Report() map[string]uint64 {
	m := map[string]uint64{
		"FTQ_CYCLES_ON_PATH":       s.CyclesOnPath,
		"FTQ_CYCLES_OFF_PATH":      s.CyclesOffPath,
		"FTQ_FETCHED_INS_ON_PATH":  s.FetchedInsOnPath,
		"FTQ_FETCHED_INS_OFF_PATH": s.FetchedInsOffPath,
		"FTQ_RECOVER_DECODE":       s.RecoverDecodeCount,
		"FTQ_RECOVER_EXEC":         s.RecoverExecCount,
		"FTQ_OFFPATH_CYCLES":       s.OffPathCycles,
	}
	for k, v := range s.breaks {
		onPath := "OFF_PATH"
		if k.onPath {
			onPath = "ON_PATH"
		}
		m[fmt.Sprintf("FTQ_BREAK_%s_%s", k.reason, onPath)] = v
	}
	return m
}
