package dispatch

import (
	"github.com/example/riscv-core/decode"
	"github.com/example/riscv-core/segment"
)

// entryFunc is the shape every bytecode's handler takes once resolved
// out of the shared table: env plus positional access to the current
// entry and pc, returning the control-transfer decision.
type entryFunc func(env Env, entry *segment.Entry, pc uint64) (step, error)

// handlerTable is built once and shared by RunThreaded and RunTailCall:
// both dispatch by indexing this array instead of a switch, standing in
// for the label-threaded and tail-call-threaded forms Go cannot express
// directly (no computed goto, no guaranteed tail-call elimination).
var handlerTable [decode.Count]entryFunc

func init() {
	reg := func(bc decode.Bytecode, fn entryFunc) { handlerTable[bc] = fn }

	addiClass := func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execAddiClass(env, entry.Bytecode, entry), nil
	}
	for _, bc := range []decode.Bytecode{decode.Addi, decode.Slli, decode.Slti, decode.Sltiu,
		decode.Xori, decode.Srli, decode.Srai, decode.Ori, decode.Andi, decode.Addiw} {
		reg(bc, addiClass)
	}

	reg(decode.Li, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execLi(env, entry), nil
	})
	reg(decode.Mv, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execMv(env, entry), nil
	})
	reg(decode.Lui, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execLui(env, entry), nil
	})
	reg(decode.Auipc, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execAuipc(env, entry, pc), nil
	})

	loadFn := func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execLoad(env, entry.Bytecode, entry)
	}
	for _, bc := range []decode.Bytecode{decode.Ldb, decode.Ldbu, decode.Ldh, decode.Ldhu, decode.Ldw, decode.Ldwu, decode.Ldd} {
		reg(bc, loadFn)
	}
	storeFn := func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execStore(env, entry.Bytecode, entry)
	}
	for _, bc := range []decode.Bytecode{decode.Stb, decode.Sth, decode.Stw, decode.Std} {
		reg(bc, storeFn)
	}

	branchFn := func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execBranch(env, entry.Bytecode, entry, pc), nil
	}
	for _, bc := range []decode.Bytecode{decode.Beq, decode.Bne, decode.Blt, decode.Bge,
		decode.Bltu, decode.Bgeu, decode.BeqFw, decode.BneFw} {
		reg(bc, branchFn)
	}

	aluFn := func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execOpAlu(env, entry.Bytecode, entry), nil
	}
	for _, bc := range []decode.Bytecode{decode.OpAdd, decode.OpSub, decode.OpSll, decode.OpSlt, decode.OpSltu,
		decode.OpXor, decode.OpSrl, decode.OpSra, decode.OpOr, decode.OpAnd,
		decode.OpMul, decode.OpMulh, decode.OpMulhsu, decode.OpMulhu,
		decode.OpDiv, decode.OpDivu, decode.OpRem, decode.OpRemu,
		decode.OpAddw, decode.OpSubw, decode.OpSllw, decode.OpSrlw, decode.OpSraw,
		decode.OpMulw, decode.OpDivw, decode.OpDivuw, decode.OpRemw, decode.OpRemuw} {
		reg(bc, aluFn)
	}

	reg(decode.Jal, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execJal(env, entry, pc), nil
	})
	reg(decode.FastJal, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execFastJal(env, entry, pc), nil
	})
	reg(decode.FastCall, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execFastCall(env, entry, pc), nil
	})
	reg(decode.Jalr, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execJalr(env, entry, pc)
	})
	reg(decode.Lr, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execLr(env, entry)
	})
	reg(decode.Sc, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return execSc(env, entry)
	})
	reg(decode.Nop, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return fallthroughStep(), nil
	})
	reg(decode.Fence, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return fallthroughStep(), nil
	})
	reg(decode.Syscall, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		return fallthroughStep(), env.HandleSyscall()
	})
	reg(decode.Translator, func(env Env, entry *segment.Entry, pc uint64) (step, error) {
		next, err := env.HandleTranslator(entry.TranslatorID)
		if err != nil {
			return step{}, err
		}
		return branchTo(next), nil
	})
}

func lookupHandler(bc decode.Bytecode) (entryFunc, bool) {
	fn := handlerTable[bc]
	return fn, fn != nil
}
