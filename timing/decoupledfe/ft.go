package decoupledfe

import (
	"fmt"

	"github.com/sarchlab/scarabfe/op"
)

// EndedBy enumerates why an FT closed (spec.md §3).
type EndedBy uint8

// FT termination reasons, listed from lowest to highest priority; the
// builder evaluates them highest first (spec.md §4.1).
const (
	// EndedByInit means the FT is still open.
	EndedByInit EndedBy = iota
	EndedByICacheLineBoundary
	EndedByTakenBranch
	EndedByBarFetch
	EndedByAppExit
)

// String implements fmt.Stringer for log/debug output.
func (e EndedBy) String() string {
	switch e {
	case EndedByInit:
		return "INIT"
	case EndedByICacheLineBoundary:
		return "ICACHE_LINE_BOUNDARY"
	case EndedByTakenBranch:
		return "TAKEN_BRANCH"
	case EndedByBarFetch:
		return "BAR_FETCH"
	case EndedByAppExit:
		return "APP_EXIT"
	default:
		return "UNKNOWN"
	}
}

// invariant panics with a formatted message if cond is false. It is the Go
// analogue of the original C++ source's ASSERT/ASSERTM macros: a violation
// here is a programmer/invariant bug (spec.md §7 class 1), not a runtime
// condition to recover from.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// FT (Fetch Target) is an ordered, contiguous run of ops that share one
// I-cache fetch window (spec.md §3). The zero value is an open, empty FT
// ready to receive its first op.
type FT struct {
	ops []*op.Op

	// readCursor is the index of the next op to deliver to the consumer.
	readCursor int

	start   uint64
	length  uint64
	endedBy EndedBy
}

// Start returns the PC of the first byte of the first op, or 0 if empty.
func (f *FT) Start() uint64 { return f.start }

// Length returns the byte length from Start to the end of the last op.
func (f *FT) Length() uint64 { return f.length }

// EndedBy returns why the FT closed; EndedByInit means still open.
func (f *FT) EndedBy() EndedBy { return f.endedBy }

// NumOps returns the number of ops currently held by the FT.
func (f *FT) NumOps() int { return len(f.ops) }

// IsClosed reports whether the FT has been terminated.
func (f *FT) IsClosed() bool { return f.endedBy != EndedByInit }

// IsPushable reports whether the FT satisfies the FTQ-push invariant of
// spec.md §3 invariant 3: non-zero start/length/op count and closed.
func (f *FT) IsPushable() bool {
	return f.start != 0 && f.length != 0 && len(f.ops) != 0 && f.IsClosed()
}

// add appends o to the FT, closing it if endedBy is not EndedByInit. Only
// the FT Builder calls this; it is unexported so every mutation of an
// open FT goes through the builder's termination-policy evaluation.
func (f *FT) add(o *op.Op, endedBy EndedBy) {
	if len(f.ops) == 0 {
		invariant(o.BOM, "first op appended to an FT must have bom=true")
		invariant(f.start == 0, "FT start already set")
		f.start = o.Addr
	} else {
		last := f.ops[len(f.ops)-1]
		if o.BOM {
			invariant(last.Addr+uint64(last.Size) == o.Addr,
				"non-contiguous op appended: prev addr 0x%x size %d, next addr 0x%x",
				last.Addr, last.Size, o.Addr)
		} else {
			invariant(last.Addr == o.Addr,
				"micro-op of same macro-instruction must share address: prev 0x%x next 0x%x",
				last.Addr, o.Addr)
		}
	}

	f.ops = append(f.ops, o)

	if endedBy != EndedByInit {
		invariant(o.EOM, "FT may only be closed on an eom op")
		invariant(f.length == 0, "FT length already set")
		invariant(f.start != 0, "FT closed before start was set")
		f.length = o.Addr + uint64(o.Size) - f.start
		invariant(f.endedBy == EndedByInit, "FT closed twice")
		f.endedBy = endedBy
	}
}

// freeOpsAndClear releases every op from readCursor onward back to pool
// and resets the FT to its zero state. Used by recovery, for every FTQ
// entry, the in-use FT, and (via Builder.Reset) the in-flight FT.
func (f *FT) freeOpsAndClear(pool op.Pool) {
	for ; f.readCursor < len(f.ops); f.readCursor++ {
		pool.Free(f.ops[f.readCursor])
	}
	f.ops = nil
	f.readCursor = 0
	f.start = 0
	f.length = 0
	f.endedBy = EndedByInit
}

// canFetchOp reports whether the consumer can pull another op from this FT.
func (f *FT) canFetchOp() bool {
	return f.readCursor < len(f.ops)
}

// fetchOp delivers the next op to the consumer, advancing the read cursor.
// endOfFT is true iff the delivered op was the last one in the FT.
func (f *FT) fetchOp() (o *op.Op, endOfFT bool, ok bool) {
	if !f.canFetchOp() {
		return nil, false, false
	}
	o = f.ops[f.readCursor]
	endOfFT = f.readCursor+1 == len(f.ops)
	f.readCursor++
	return o, endOfFT, true
}

// returnOp undoes the most recently delivered fetchOp. o must be identity-
// equal to the last op handed out; returning any other op, or returning
// when the FT has no delivered ops, is an invariant violation.
//
// Per spec.md §9's open question on returning the first op of an FT, this
// implementation takes option (a): it forbids returning the FT's first op
// (readCursor would become 0) rather than reinstating the FT at the FTQ
// head, since nothing downstream re-rebases iterators in the inverse
// direction and silently allowing it would leave iterator offsets
// inconsistent with the now-reopened FT.
func (f *FT) returnOp(o *op.Op) {
	invariant(f.readCursor > 1, "return_op: cannot return the first op of an FT")
	invariant(o == f.ops[f.readCursor-1], "return_op: op does not match the last one delivered")
	f.readCursor--
}
