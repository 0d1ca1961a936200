// Package op defines the Op type shared between the trace/emulator
// front-end, the decoupled fetch front-end, and the I-cache/decode stages.
//
// Ops are owned by an external pool (see Pool); this package only defines
// the data each op carries and a reference pool implementation.
package op

// CFType classifies the control-flow behavior of an op. Non-control-flow
// ops use CFNone.
type CFType uint8

// Control-flow classifications.
const (
	CFNone CFType = iota
	CFConditionalBranch
	CFUnconditionalBranch
	CFIndirectBranch
	CFCall
	CFReturn
)

// IsControlFlow reports whether t denotes any kind of control-flow op.
func (t CFType) IsControlFlow() bool {
	return t != CFNone
}

// OracleInfo carries the ground truth the trace/emulator front-end knows
// about an op's actual outcome, used to drive misprediction recovery.
type OracleInfo struct {
	// NPC is the true next-PC the op resolves to (taken target, fall
	// through, or return address).
	NPC uint64

	// Taken reports whether a control-flow op is actually taken.
	Taken bool

	// BTBMiss reports whether the branch predictor's BTB had no entry
	// for this op's address.
	BTBMiss bool

	// RecoverAtDecode and RecoverAtExec flag that the back-end must issue
	// a recovery once this op reaches decode/execute respectively. At most
	// one may be set; see Op.ClearRecovery.
	RecoverAtDecode bool
	RecoverAtExec   bool
}

// Mispredicted reports whether either recovery flag is set.
func (o OracleInfo) Mispredicted() bool {
	return o.RecoverAtDecode || o.RecoverAtExec
}

// Op is a single (possibly micro-) operation flowing through the decoupled
// fetch front-end. The front-end never owns an Op's memory: it holds a
// reference borrowed from a Pool between Pool.Alloc and the point the op
// is either hand off downstream (to the I-cache) or released back to the
// pool via Pool.Free.
type Op struct {
	// Addr is the address of the first byte of this op.
	Addr uint64

	// Size is the size, in bytes, of the macro-instruction this op
	// belongs to (all micro-ops of one macro-instruction share it).
	Size uint8

	// BOM marks the first micro-op of a macro-instruction.
	BOM bool

	// EOM marks the last micro-op of a macro-instruction. Control-flow
	// classification, fetch barriers, and FT termination are only ever
	// evaluated on EOM ops.
	EOM bool

	// CFType classifies this op's control-flow behavior. Non-CFNone
	// values are only ever set on EOM ops.
	CFType CFType

	// BarFetch marks a fetch barrier (serializing instruction) that the
	// front-end must not speculate past.
	BarFetch bool

	// Syscall marks a system call op; syscalls are implicit fetch
	// barriers (see Op.IsFetchBarrier).
	Syscall bool

	// Oracle carries the ground-truth outcome used for recovery.
	Oracle OracleInfo

	// OffPath marks that this op was fetched while the core was
	// executing down a mispredicted path.
	OffPath bool

	// OpNum is the per-core monotonically increasing sequence number
	// stamped by the producer. Reset only on recovery.
	OpNum uint64

	// InstUID is the unique instruction id assigned by the trace/emulator
	// front-end, used to address frontend_redirect/frontend_recover.
	InstUID uint64

	// Exit marks the op that ends the traced program.
	Exit bool
}

// IsFetchBarrier reports whether the op must stall the front-end: either
// an explicit fetch-barrier flag or a syscall.
func (o *Op) IsFetchBarrier() bool {
	return o.BarFetch || o.Syscall
}

// ClearRecovery clears both recovery flags, used when a fetch barrier or
// syscall is encountered (the back-end cannot recover across a barrier) or
// when the core is already off-path (out-of-order off-path recoveries are
// not attempted).
func (o *Op) ClearRecovery() {
	o.Oracle.RecoverAtDecode = false
	o.Oracle.RecoverAtExec = false
}

// Pool allocates and releases Ops. The decoupled fetch front-end treats
// every Op as borrowed: it calls Alloc to obtain one from the trace/
// emulator front-end and must eventually call exactly one of Free (on
// recovery/FT teardown) or hand the op downstream to the I-cache, which
// frees it after consumption.
type Pool interface {
	Alloc() *Op
	Free(*Op)
}

// SlicePool is a reference Pool backed by a free list of pointers. It is
// intended for tests and the demo CLI; production front-ends generally
// plug in whatever allocator the surrounding simulator already uses.
type SlicePool struct {
	free        []*Op
	allocations uint64
	frees       uint64
}

// NewSlicePool creates an empty SlicePool.
func NewSlicePool() *SlicePool {
	return &SlicePool{}
}

// Alloc returns a zeroed Op, reusing a freed one when available.
func (p *SlicePool) Alloc() *Op {
	p.allocations++
	if n := len(p.free); n > 0 {
		o := p.free[n-1]
		p.free = p.free[:n-1]
		*o = Op{}
		return o
	}
	return &Op{}
}

// Free returns op to the pool for reuse.
func (p *SlicePool) Free(o *Op) {
	p.frees++
	p.free = append(p.free, o)
}

// Outstanding returns the number of ops allocated but not yet freed.
func (p *SlicePool) Outstanding() uint64 {
	return p.allocations - p.frees
}
