package dispatch

import (
	"github.com/example/riscv-core/decode"
	"github.com/example/riscv-core/except"
	"github.com/example/riscv-core/segment"
)

// Result reports why RunSwitch (or one of its sibling loops) returned:
// either the instruction budget was exhausted, or a trap fired.
type Result struct {
	Executed uint64
	NextPC   uint64
	Err      error
}

// RunSwitch executes entries from seg starting at pc until imax
// instructions have run, a control transfer leaves the segment, or a
// handler traps. This is the direct switch-based dispatcher: the
// bytecode drives one big switch statement inline in the loop, the
// simplest and most portable of the three modes.
//
// blockLeft implements NEXT_BLOCK: seg.Contains is only re-checked when
// entering a fresh block, using the head entry's InstrCount to know how
// many instructions are guaranteed to stay inside the segment before the
// next boundary check is needed, instead of re-verifying membership on
// every single instruction.
func RunSwitch(env Env, seg *segment.Segment, pc uint64, imax uint64) Result {
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
		bc := entry.Bytecode

		var s step
		var err error
		switch bc {
		case decode.Addi, decode.Slli, decode.Slti, decode.Sltiu, decode.Xori,
			decode.Srli, decode.Srai, decode.Ori, decode.Andi, decode.Addiw:
			s = execAddiClass(env, bc, entry)
		case decode.Li:
			s = execLi(env, entry)
		case decode.Mv:
			s = execMv(env, entry)
		case decode.Lui:
			s = execLui(env, entry)
		case decode.Auipc:
			s = execAuipc(env, entry, pc)
		case decode.Ldb, decode.Ldbu, decode.Ldh, decode.Ldhu, decode.Ldw, decode.Ldwu, decode.Ldd:
			s, err = execLoad(env, bc, entry)
		case decode.Stb, decode.Sth, decode.Stw, decode.Std:
			s, err = execStore(env, bc, entry)
		case decode.Beq, decode.Bne, decode.Blt, decode.Bge, decode.Bltu, decode.Bgeu, decode.BeqFw, decode.BneFw:
			s = execBranch(env, bc, entry, pc)
		case decode.OpAdd, decode.OpSub, decode.OpSll, decode.OpSlt, decode.OpSltu, decode.OpXor,
			decode.OpSrl, decode.OpSra, decode.OpOr, decode.OpAnd,
			decode.OpMul, decode.OpMulh, decode.OpMulhsu, decode.OpMulhu,
			decode.OpDiv, decode.OpDivu, decode.OpRem, decode.OpRemu,
			decode.OpAddw, decode.OpSubw, decode.OpSllw, decode.OpSrlw, decode.OpSraw,
			decode.OpMulw, decode.OpDivw, decode.OpDivuw, decode.OpRemw, decode.OpRemuw:
			s = execOpAlu(env, bc, entry)
		case decode.Jal:
			s = execJal(env, entry, pc)
		case decode.FastJal:
			s = execFastJal(env, entry, pc)
		case decode.FastCall:
			s = execFastCall(env, entry, pc)
		case decode.Jalr:
			s, err = execJalr(env, entry, pc)
		case decode.Lr:
			s, err = execLr(env, entry)
		case decode.Sc:
			s, err = execSc(env, entry)
		case decode.Nop, decode.Fence:
			s = fallthroughStep()
		case decode.Syscall:
			err = env.HandleSyscall()
		case decode.Stop:
			return Result{Executed: executed + 1, NextPC: pc, Err: except.New(except.MaxInstructionsReached, pc).WithMessage("ebreak")}
		case decode.Translator:
			var next uint64
			next, err = env.HandleTranslator(entry.TranslatorID)
			if err == nil {
				s = branchTo(next)
			}
		default:
			err = exceptFor(bc, pc)
		}

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
