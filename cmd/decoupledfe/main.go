// Package main provides a standalone demo driver for the decoupled fetch
// front-end: it runs a small synthetic instruction trace through
// timing/decoupledfe and prints the resulting FTQ/producer statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/scarabfe/frontend"
	"github.com/sarchlab/scarabfe/op"
	"github.com/sarchlab/scarabfe/predictor"
	"github.com/sarchlab/scarabfe/timing/decoupledfe"
)

var (
	configPath = flag.String("config", "", "Path to decoupled front-end configuration JSON file")
	ticks      = flag.Int("ticks", 64, "Number of producer cycles to run")
	verbose    = flag.Bool("v", false, "Print one line per producer-tick break")
)

func main() {
	flag.Parse()

	cfg := decoupledfe.DefaultConfig()
	if *configPath != "" {
		loaded, err := decoupledfe.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	trace := frontend.NewTrace(syntheticLoopTrace())
	pred := predictor.New(predictor.DefaultConfig())
	pool := op.NewSlicePool()

	ctx := decoupledfe.NewContext(cfg, pool, trace, pred)

	if *verbose {
		ctx.Stats().AcceptHook(breakLogger{})
	}

	ran := 0
	for i := 0; i < *ticks; i++ {
		ctx.Tick()
		ran++
		drainConsumer(ctx, pool)
		if !trace.CanFetchOp() && !ctx.CanFetchOp() {
			break
		}
	}

	report := ctx.Stats().Report()
	fmt.Printf("Ran %d producer ticks\n\n", ran)
	for _, name := range []string{
		"FTQ_CYCLES_ON_PATH", "FTQ_CYCLES_OFF_PATH",
		"FTQ_FETCHED_INS_ON_PATH", "FTQ_FETCHED_INS_OFF_PATH",
		"FTQ_RECOVER_DECODE", "FTQ_RECOVER_EXEC", "FTQ_OFFPATH_CYCLES",
	} {
		fmt.Printf("%-28s %d\n", name, report[name])
	}
}

// drainConsumer pulls every op the consumer can currently fetch and frees
// it back to the pool, as the downstream I-cache/decode stage would after
// consuming it.
func drainConsumer(ctx *decoupledfe.Context, pool op.Pool) {
	for ctx.CanFetchOp() {
		o, _, ok := ctx.FetchOp()
		if !ok {
			break
		}
		pool.Free(o)
	}
}

type breakLogger struct{}

func (breakLogger) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case decoupledfe.HookPosFTQBreak:
		ev := ctx.Detail.(*decoupledfe.BreakEvent)
		fmt.Printf("break: %s on_path=%v\n", ev.Reason, ev.OnPath)
	case decoupledfe.HookPosRecover:
		ev := ctx.Detail.(*decoupledfe.RecoverEvent)
		fmt.Printf("recover: %s off_path_cycles=%d new_addr=0x%x\n", ev.Kind, ev.OffPathCycles, ev.NewAddr)
	}
}

// syntheticLoopTrace builds a short straight-line-then-taken-branch
// program repeated a few times, matching the shape of spec.md §8's
// straight-line-fill and taken-branch scenarios.
func syntheticLoopTrace() []frontend.Entry {
	var entries []frontend.Entry
	addr := uint64(0x1000)
	var uid uint64

	emit := func(size uint8, cf op.CFType, taken bool, npc uint64) {
		e := frontend.Entry{
			Addr: addr, Size: size, BOM: true, EOM: true,
			CFType: cf, InstUID: uid,
			Oracle: op.OracleInfo{NPC: npc, Taken: taken},
		}
		if cf == op.CFNone {
			e.Oracle.NPC = addr + uint64(size)
		}
		entries = append(entries, e)
		addr += uint64(size)
		uid++
	}

	for iter := 0; iter < 4; iter++ {
		loopStart := addr
		emit(4, op.CFNone, false, 0)
		emit(4, op.CFNone, false, 0)
		emit(4, op.CFNone, false, 0)
		emit(4, op.CFConditionalBranch, true, loopStart)
		addr = loopStart
		uid = entries[len(entries)-1].InstUID + 1
	}

	last := len(entries) - 1
	addr = entries[last].Addr + uint64(entries[last].Size)
	entries[last].Oracle.Taken = false
	entries[last].Oracle.NPC = addr
	entries = append(entries, frontend.Entry{
		Addr: addr, Size: 4, BOM: true, EOM: true, Exit: true, InstUID: uid,
		Oracle: op.OracleInfo{NPC: addr + 4},
	})

	return entries
}
