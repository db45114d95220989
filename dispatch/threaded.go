package dispatch

import (
	"github.com/example/riscv-core/decode"
	"github.com/example/riscv-core/except"
	"github.com/example/riscv-core/segment"
)

// RunThreaded executes seg starting at pc by indexing handlerTable with
// the current bytecode instead of switching on it. It approximates the
// reference design's computed-goto dispatch (a jump straight to the
// handler's label) with the closest Go equivalent: an indirect call
// through a function-pointer table built once at package init.
//
// Like RunSwitch, it uses NEXT_BLOCK: blockLeft tracks how many
// instructions remain in the current block per the head entry's
// InstrCount, so seg.Contains only runs once per block instead of once
// per instruction.
func RunThreaded(env Env, seg *segment.Segment, pc uint64, imax uint64) Result {
	var executed uint64
	var blockLeft uint16
	for executed < imax {
		if blockLeft == 0 {
			if !seg.Contains(pc) {
				return Result{Executed: executed, NextPC: pc}
			}
			blockLeft = seg.EntryAt(pc).InstrCount
			if blockLeft == 0 {
				blockLeft = 1
			}
		}
		entry := seg.EntryAt(pc)

		if entry.Bytecode == decode.Stop {
			return Result{Executed: executed + 1, NextPC: pc, Err: except.New(except.MaxInstructionsReached, pc).WithMessage("ebreak")}
		}

		fn, ok := lookupHandler(entry.Bytecode)
		if !ok {
			return Result{Executed: executed, NextPC: pc, Err: exceptFor(entry.Bytecode, pc)}
		}
		s, err := fn(env, entry, pc)
		if err != nil {
			return Result{Executed: executed, NextPC: pc, Err: err}
		}
		env.CPU().Counter++
		executed++
		blockLeft--
		if s.transfer {
			pc = s.target
			blockLeft = 0
		} else {
			width := uint64(entry.Width)
			if width == 0 {
				width = 4
			}
			pc += width
		}
		env.CPU().PC = pc
	}
	return Result{Executed: executed, NextPC: pc}
}
