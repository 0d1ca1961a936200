// Package predictor provides the narrow branch-predictor collaborator the
// decoupled fetch front-end consults: predict_branch and is_predictable
// from spec.md §6. A reference bimodal+BTB implementation is included for
// tests and the demo CLI; production callers may plug in any predictor
// satisfying the Predictor interface.
package predictor

import "github.com/sarchlab/scarabfe/op"

// Predictor is the external branch predictor collaborator. CFIndex is the
// count of control-flow ops already predicted this cycle (some predictors
// advertise a per-cycle prediction limit via IsPredictable).
type Predictor interface {
	// Predict returns the predicted next-PC for a control-flow op.
	Predict(o *op.Op, cfIndex int, currentPC uint64) uint64

	// IsPredictable reports whether the predictor can still produce a
	// prediction this cycle. Predictors with no such limit always return
	// true.
	IsPredictable() bool

	// Update trains the predictor with an op's resolved outcome.
	Update(pc uint64, taken bool, target uint64)
}

// Config configures the reference bimodal+BTB predictor.
type Config struct {
	// BHTSize is the number of entries in the branch history table. Must
	// be a power of 2.
	BHTSize uint32
	// BTBSize is the number of entries in the branch target buffer. Must
	// be a power of 2.
	BTBSize uint32
	// PredictionsPerCycle caps how many predictions IsPredictable allows
	// before returning false; 0 means unlimited.
	PredictionsPerCycle int
}

// DefaultConfig returns a Config matching the teacher pipeline's default
// bimodal predictor sizing.
func DefaultConfig() Config {
	return Config{BHTSize: 1024, BTBSize: 256, PredictionsPerCycle: 0}
}

type btbEntry struct {
	pc     uint64
	target uint64
}

// Bimodal is a 2-bit saturating-counter branch predictor with a branch
// target buffer, the same design as timing/pipeline.BranchPredictor,
// adapted to the Op-oriented Predict(op, cfIndex, pc) signature spec.md
// §6 requires.
type Bimodal struct {
	bht      []uint8
	btb      []btbEntry
	btbValid []bool

	bhtSize uint32
	btbSize uint32

	perCycleLimit int
	predictedThisCycle int
}

// New creates a reference bimodal predictor.
func New(cfg Config) *Bimodal {
	bhtSize := cfg.BHTSize
	if bhtSize == 0 {
		bhtSize = 1024
	}
	btbSize := cfg.BTBSize
	if btbSize == 0 {
		btbSize = 256
	}

	b := &Bimodal{
		bht:           make([]uint8, bhtSize),
		btb:           make([]btbEntry, btbSize),
		btbValid:      make([]bool, btbSize),
		bhtSize:       bhtSize,
		btbSize:       btbSize,
		perCycleLimit: cfg.PredictionsPerCycle,
	}
	for i := range b.bht {
		b.bht[i] = 2
	}
	return b
}

func (b *Bimodal) bhtIndex(pc uint64) uint32 {
	return uint32((pc >> 2) & uint64(b.bhtSize-1))
}

func (b *Bimodal) btbIndex(pc uint64) uint32 {
	return uint32((pc >> 2) & uint64(b.btbSize-1))
}

// Predict implements Predictor.
func (b *Bimodal) Predict(o *op.Op, cfIndex int, currentPC uint64) uint64 {
	b.predictedThisCycle++

	idx := b.bhtIndex(currentPC)
	taken := b.bht[idx] >= 2

	btbIdx := b.btbIndex(currentPC)
	if taken && b.btbValid[btbIdx] && b.btb[btbIdx].pc == currentPC {
		return b.btb[btbIdx].target
	}
	if taken {
		return o.Oracle.NPC
	}
	return currentPC + uint64(o.Size)
}

// IsPredictable implements Predictor.
func (b *Bimodal) IsPredictable() bool {
	if b.perCycleLimit == 0 {
		return true
	}
	return b.predictedThisCycle < b.perCycleLimit
}

// ResetCycle clears the per-cycle prediction counter; the producer calls
// this once per tick before consulting IsPredictable.
func (b *Bimodal) ResetCycle() {
	b.predictedThisCycle = 0
}

// Update implements Predictor.
func (b *Bimodal) Update(pc uint64, taken bool, target uint64) {
	idx := b.bhtIndex(pc)
	if taken {
		if b.bht[idx] < 3 {
			b.bht[idx]++
		}
		btbIdx := b.btbIndex(pc)
		b.btb[btbIdx] = btbEntry{pc: pc, target: target}
		b.btbValid[btbIdx] = true
	} else if b.bht[idx] > 0 {
		b.bht[idx]--
	}
}
