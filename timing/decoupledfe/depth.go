package decoupledfe

import "math"

// UtilityTimelinessInfo is the shared, per-core structure the FDIP
// prefetcher reports through (spec.md §6): the fraction of prefetches
// actually used (UtilityRatio) and the fraction delivered before demand
// needed them (TimelinessRatio). Adjust gates whether the adaptive-depth
// controller runs on the next recovery; it is cleared once consumed.
type UtilityTimelinessInfo struct {
	UtilityRatio    float64
	TimelinessRatio float64
	Adjust          bool
}

// Prefetcher is the narrow notifier interface the consumer calls into when
// its current op matches the head of a just-popped FT and
// Config.FDIPBPConfidence is enabled (spec.md §4.5), letting the
// prefetcher re-anchor its own lookahead iterator.
type Prefetcher interface {
	SetCurrentOp(addr uint64)
}

const (
	utilityRatioThreshold    = 0.70
	timelinessRatioThreshold = 0.77
)

// adjustDepth implements the adaptive FTQ-depth controller of spec.md
// §4.4. It is invoked once per recovery when info.Adjust is set, and
// clears info.Adjust before returning; in AdjustableFTQDisabled mode it
// returns depth unchanged and leaves info.Adjust as it is.
func adjustDepth(cfg *Config, depth uint64, info *UtilityTimelinessInfo) uint64 {
	if cfg.FDIPAdjustableFTQ == AdjustableFTQDisabled {
		return depth
	}

	var newDepth uint64
	switch cfg.FDIPAdjustableFTQ {
	case AdjustableFTQUtilityOnly:
		newDepth = applyRatioRule(depth, info.UtilityRatio, utilityRatioThreshold)
	case AdjustableFTQTimelinessOnly:
		newDepth = applyRatioRule(depth, info.TimelinessRatio, timelinessRatioThreshold)
	case AdjustableFTQCombined:
		qdaur := applyRatioRule(depth, info.UtilityRatio, utilityRatioThreshold)
		qdatr := applyRatioRule(depth, info.TimelinessRatio, timelinessRatioThreshold)
		fqdaur := float64(qdaur)
		fqdatr := float64(qdatr)
		// Calibrated fit from the original source; coefficients must be
		// preserved verbatim for behavioral equivalence (spec.md §4.4,
		// §9 open question).
		v := -2.3*fqdaur - 31.2*fqdatr + 0.007*fqdaur*fqdaur + 0.1*fqdatr*fqdatr + 0.3*fqdaur*fqdatr
		if v < 0 {
			v = 0
		}
		newDepth = uint64(math.Round(v))
	default:
		newDepth = depth
	}

	newDepth = clampDepth(newDepth, cfg.MinBlockNum, cfg.MaxBlockNum)
	info.Adjust = false
	return newDepth
}

// applyRatioRule applies the single-ratio adjustment rule shared by modes
// 1 and 2: depth +/- round(depth * |ratio - threshold|), using `depth` as
// the reference point (unclamped here; clamping happens once on the final
// result, matching the original combined-mode computation that uses the
// un-clamped hypothetical depths as polynomial inputs).
func applyRatioRule(depth uint64, ratio, threshold float64) uint64 {
	delta := math.Round(float64(depth) * math.Abs(ratio-threshold))
	if ratio < threshold {
		if delta > float64(depth) {
			return 0
		}
		return depth - uint64(delta)
	}
	if ratio > threshold {
		return depth + uint64(delta)
	}
	return depth
}

func clampDepth(depth, min, max uint64) uint64 {
	if depth < min {
		return min
	}
	if depth > max {
		return max
	}
	return depth
}
