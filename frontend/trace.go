// Package frontend provides reference implementations of the narrow
// FrontEnd interface the decoupled fetch front-end pulls ops from
// (timing/decoupledfe.FrontEnd): a pre-recorded instruction trace, the
// FE_PT/memtrace style the original simulator's trace_mode flag selects.
package frontend

import "github.com/sarchlab/scarabfe/op"

// Entry is one statically recorded instruction, carrying the oracle
// ground truth a trace front-end already knows (it was recorded from a
// prior functional run), unlike an execution-driven front-end that
// resolves outcomes as it goes.
type Entry struct {
	Addr     uint64
	Size     uint8
	BOM      bool
	EOM      bool
	CFType   op.CFType
	BarFetch bool
	Syscall  bool
	Oracle   op.OracleInfo
	Exit     bool
	InstUID  uint64
}

// Trace is a FrontEnd backed by a fixed, pre-recorded instruction
// sequence. Redirect and Recover seek within the recording by address and
// instruction UID respectively; Retire is a no-op since a trace carries no
// execution-driven blocking state.
type Trace struct {
	entries []Entry
	pos     int

	byUID map[uint64]int
}

// NewTrace creates a Trace front-end over entries, which must be ordered
// by fetch sequence (the order they were originally recorded in).
func NewTrace(entries []Entry) *Trace {
	t := &Trace{entries: entries, byUID: make(map[uint64]int, len(entries))}
	for i, e := range entries {
		t.byUID[e.InstUID] = i
	}
	return t
}

// CanFetchOp implements decoupledfe.FrontEnd.
func (t *Trace) CanFetchOp() bool {
	return t.pos < len(t.entries)
}

// FetchOp implements decoupledfe.FrontEnd.
func (t *Trace) FetchOp(o *op.Op) {
	e := t.entries[t.pos]
	t.pos++

	o.Addr = e.Addr
	o.Size = e.Size
	o.BOM = e.BOM
	o.EOM = e.EOM
	o.CFType = e.CFType
	o.BarFetch = e.BarFetch
	o.Syscall = e.Syscall
	o.Oracle = e.Oracle
	o.Exit = e.Exit
	o.InstUID = e.InstUID
}

// Redirect implements decoupledfe.FrontEnd by seeking to the recorded
// entry at addr. The trace was recorded along the oracle-correct path, so
// every address the front-end is ever redirected to (whether a correct
// prediction or, eventually, a recovery) already appears in it.
func (t *Trace) Redirect(instUID uint64, addr uint64) {
	t.seekAddr(addr)
}

// Recover implements decoupledfe.FrontEnd by seeking to the entry with
// the given instruction UID.
func (t *Trace) Recover(instUID uint64) {
	idx, ok := t.byUID[instUID]
	if !ok {
		panic("frontend: recover to unknown instruction UID")
	}
	t.pos = idx
}

// NextFetchAddr implements decoupledfe.FrontEnd.
func (t *Trace) NextFetchAddr() uint64 {
	if t.pos < len(t.entries) {
		return t.entries[t.pos].Addr
	}
	if len(t.entries) == 0 {
		return 0
	}
	last := t.entries[len(t.entries)-1]
	return last.Addr + uint64(last.Size)
}

// Retire implements decoupledfe.FrontEnd. A trace front-end has no
// execution-driven blocking state to unwind.
func (t *Trace) Retire(instUID uint64) {}

func (t *Trace) seekAddr(addr uint64) {
	// A trace may revisit the same address (a loop), so seeking always
	// starts from the current position and searches forward, matching a
	// real speculative front-end that can only fetch instructions it
	// hasn't already retired past. Wraps once if the target lies behind
	// the current position (e.g. a predicted-taken backward branch within
	// a loop trace whose next occurrence hasn't been reached yet).
	for i := t.pos; i < len(t.entries); i++ {
		if t.entries[i].Addr == addr {
			t.pos = i
			return
		}
	}
	for i := 0; i < t.pos; i++ {
		if t.entries[i].Addr == addr {
			t.pos = i
			return
		}
	}
	panic("frontend: redirect to address not present in trace")
}
