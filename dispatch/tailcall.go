package dispatch

import (
	"github.com/example/riscv-core/decode"
	"github.com/example/riscv-core/except"
	"github.com/example/riscv-core/segment"
)

// continuation is what a tail-call-style handler yields instead of
// returning to a generic caller: the next pc to run and whether the
// dispatcher loop should keep going. In the reference design this
// step is a musttail call straight into the next handler; Go has no
// guaranteed tail-call elimination, so RunTailCall drives the same
// per-handler continuations from an explicit trampoline loop instead of
// letting the call stack grow.
type continuation struct {
	pc        uint64
	blockLeft uint16
	more      bool
	err       error
}

// RunTailCall executes seg starting at pc using the same handler table
// as RunThreaded, structured as a trampoline: each iteration resolves
// exactly one handler and its continuation, so no Go call frame outlives
// a single instruction regardless of how many instructions run.
//
// blockLeft carries the NEXT_BLOCK count across trampoline bounces: it
// is resolved once from the block head's InstrCount and threaded through
// continuation so seg.Contains is skipped for every instruction after
// the first in a block, the same batching RunSwitch and RunThreaded do
// inline in their loops.
func RunTailCall(env Env, seg *segment.Segment, pc uint64, imax uint64) Result {
	var executed uint64
	cont := continuation{pc: pc, more: true}
	for cont.more && executed < imax {
		cont = tailStep(env, seg, cont.pc, cont.blockLeft)
		if cont.err != nil {
			if seg.Contains(cont.pc) && seg.EntryAt(cont.pc).Bytecode == decode.Stop {
				executed++ // EBREAK counts as executed, as in RunSwitch and RunThreaded
			}
			return Result{Executed: executed, NextPC: cont.pc, Err: cont.err}
		}
		if !cont.more {
			break // pc left the segment; nothing ran this bounce
		}
		executed++
	}
	return Result{Executed: executed, NextPC: cont.pc}
}

func tailStep(env Env, seg *segment.Segment, pc uint64, blockLeft uint16) continuation {
	if blockLeft == 0 {
		if !seg.Contains(pc) {
			return continuation{pc: pc}
		}
		blockLeft = seg.EntryAt(pc).InstrCount
		if blockLeft == 0 {
			blockLeft = 1
		}
	}
	entry := seg.EntryAt(pc)

	if entry.Bytecode == decode.Stop {
		return continuation{pc: pc, err: except.New(except.MaxInstructionsReached, pc).WithMessage("ebreak")}
	}

	fn, ok := lookupHandler(entry.Bytecode)
	if !ok {
		return continuation{pc: pc, err: exceptFor(entry.Bytecode, pc)}
	}
	s, err := fn(env, entry, pc)
	if err != nil {
		return continuation{pc: pc, err: err}
	}
	env.CPU().Counter++
	blockLeft--

	next := pc
	if s.transfer {
		next = s.target
		blockLeft = 0
	} else {
		width := uint64(entry.Width)
		if width == 0 {
			width = 4
		}
		next += width
	}
	env.CPU().PC = next
	return continuation{pc: next, blockLeft: blockLeft, more: true}
}
