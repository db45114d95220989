package dispatch

import (
	"math/bits"

	"github.com/example/riscv-core/decode"
	"github.com/example/riscv-core/except"
	"github.com/example/riscv-core/riscv"
	"github.com/example/riscv-core/segment"
)

// step is the outcome of executing one decoder-cache entry: either
// straight-line (PC advances by entry.Width, handled by the caller) or a
// control transfer to Target, which may land in a different segment
// entirely and so is resolved by the owning machine, not here.
type step struct {
	transfer bool
	target   uint64
}

func fallthroughStep() step { return step{} }

func branchTo(target uint64) step { return step{transfer: true, target: target} }

// execAddiClass runs ADDI/SLLI/SLTI/SLTIU/XORI/SRLI/SRAI/ORI/ANDI/ADDIW,
// all sharing the ItypeFast layout with Rs1 holding the destination and
// Rs2 the original source register (see decode.DecodeOne).
func execAddiClass(env Env, bc decode.Bytecode, entry *segment.Entry) step {
	f := decode.UnpackItypeFast(entry.Instr)
	src := env.CPU().GetReg(f.Rs2)
	imm := int64(f.Imm)
	var result uint64
	switch bc {
	case decode.Addi:
		result = src + uint64(imm)
	case decode.Slli:
		result = src << uint(imm&0x3F)
	case decode.Slti:
		result = boolToU64(int64(src) < imm)
	case decode.Sltiu:
		result = boolToU64(src < uint64(imm))
	case decode.Xori:
		result = src ^ uint64(imm)
	case decode.Srli:
		result = src >> uint(imm&0x3F)
	case decode.Srai:
		result = uint64(int64(src) >> uint(imm&0x3F))
	case decode.Ori:
		result = src | uint64(imm)
	case decode.Andi:
		result = src & uint64(imm)
	case decode.Addiw:
		result = uint64(int32(uint32(src) + uint32(imm)))
	}
	env.CPU().SetReg(f.Rs1, result)
	return fallthroughStep()
}

func execLi(env Env, entry *segment.Entry) step {
	f := decode.UnpackImmediateFast(entry.Instr)
	env.CPU().SetReg(f.Rd, uint64(int64(f.Imm)))
	return fallthroughStep()
}

func execMv(env Env, entry *segment.Entry) step {
	f := decode.UnpackMoveFast(entry.Instr)
	env.CPU().SetReg(uint8(f.Rd), env.CPU().GetReg(uint8(f.Rs1)))
	return fallthroughStep()
}

func execLui(env Env, entry *segment.Entry) step {
	f := decode.UnpackUtypeFast(entry.Instr)
	env.CPU().SetReg(f.Rd, uint64(int64(f.Imm)))
	return fallthroughStep()
}

func execAuipc(env Env, entry *segment.Entry, pc uint64) step {
	f := decode.UnpackUtypeFast(entry.Instr)
	env.CPU().SetReg(f.Rd, pc+uint64(int64(f.Imm)))
	return fallthroughStep()
}

func execLoad(env Env, bc decode.Bytecode, entry *segment.Entry) (step, error) {
	f := decode.UnpackItypeFast(entry.Instr)
	addr := env.CPU().GetReg(f.Rs2) + uint64(int64(f.Imm))
	var size uint64
	var signExtend bool
	switch bc {
	case decode.Ldb:
		size, signExtend = 1, true
	case decode.Ldbu:
		size = 1
	case decode.Ldh:
		size, signExtend = 2, true
	case decode.Ldhu:
		size = 2
	case decode.Ldw:
		size, signExtend = 4, true
	case decode.Ldwu:
		size = 4
	case decode.Ldd:
		size = 8
	}
	v, err := env.Memory().Load(addr, size)
	if err != nil {
		return step{}, err
	}
	if signExtend {
		v = signExtendTo64(v, size)
	}
	env.CPU().SetReg(f.Rs1, v)
	return fallthroughStep(), nil
}

func execStore(env Env, bc decode.Bytecode, entry *segment.Entry) (step, error) {
	f := decode.UnpackItypeFast(entry.Instr)
	addr := env.CPU().GetReg(f.Rs1) + uint64(int64(f.Imm))
	value := env.CPU().GetReg(f.Rs2)
	var size uint64
	switch bc {
	case decode.Stb:
		size = 1
	case decode.Sth:
		size = 2
	case decode.Stw:
		size = 4
	case decode.Std:
		size = 8
	}
	env.CPU().ClearReservation()
	if err := env.Memory().Store(addr, size, value); err != nil {
		return step{}, err
	}
	return fallthroughStep(), nil
}

func execBranch(env Env, bc decode.Bytecode, entry *segment.Entry, pc uint64) step {
	f := decode.UnpackItypeFast(entry.Instr)
	a := env.CPU().GetReg(f.Rs1)
	b := env.CPU().GetReg(f.Rs2)
	var taken bool
	switch bc {
	case decode.Beq, decode.BeqFw:
		taken = a == b
	case decode.Bne, decode.BneFw:
		taken = a != b
	case decode.Blt:
		taken = int64(a) < int64(b)
	case decode.Bge:
		taken = int64(a) >= int64(b)
	case decode.Bltu:
		taken = a < b
	case decode.Bgeu:
		taken = a >= b
	}
	if !taken {
		return fallthroughStep()
	}
	return branchTo(uint64(int64(pc) + int64(f.Imm)))
}

func execOpAlu(env Env, bc decode.Bytecode, entry *segment.Entry) step {
	f := decode.UnpackOpTypeFast(entry.Instr)
	a := env.CPU().GetReg(f.Rs1)
	b := env.CPU().GetReg(f.Rs2)
	var result uint64
	switch bc {
	case decode.OpAdd:
		result = a + b
	case decode.OpSub:
		result = a - b
	case decode.OpSll:
		result = a << (b & 0x3F)
	case decode.OpSlt:
		result = boolToU64(int64(a) < int64(b))
	case decode.OpSltu:
		result = boolToU64(a < b)
	case decode.OpXor:
		result = a ^ b
	case decode.OpSrl:
		result = a >> (b & 0x3F)
	case decode.OpSra:
		result = uint64(int64(a) >> (b & 0x3F))
	case decode.OpOr:
		result = a | b
	case decode.OpAnd:
		result = a & b
	case decode.OpMul:
		result = a * b
	case decode.OpMulh:
		result = uint64(mulHighSigned(int64(a), int64(b)))
	case decode.OpMulhsu:
		result = uint64(mulHighSignedUnsigned(int64(a), b))
	case decode.OpMulhu:
		result = mulHighUnsigned(a, b)
	case decode.OpDiv:
		result = divSigned(int64(a), int64(b))
	case decode.OpDivu:
		result = divUnsigned(a, b)
	case decode.OpRem:
		result = remSigned(int64(a), int64(b))
	case decode.OpRemu:
		result = remUnsigned(a, b)
	case decode.OpAddw:
		result = uint64(int32(uint32(a) + uint32(b)))
	case decode.OpSubw:
		result = uint64(int32(uint32(a) - uint32(b)))
	case decode.OpSllw:
		result = uint64(int32(uint32(a) << (b & 0x1F)))
	case decode.OpSrlw:
		result = uint64(int32(uint32(a) >> (b & 0x1F)))
	case decode.OpSraw:
		result = uint64(int32(a) >> (b & 0x1F))
	case decode.OpMulw:
		result = uint64(int32(uint32(a) * uint32(b)))
	case decode.OpDivw:
		result = uint64(int32(divSigned(int64(int32(a)), int64(int32(b)))))
	case decode.OpDivuw:
		result = uint64(int32(divUnsigned(uint64(uint32(a)), uint64(uint32(b)))))
	case decode.OpRemw:
		result = uint64(int32(remSigned(int64(int32(a)), int64(int32(b)))))
	case decode.OpRemuw:
		result = uint64(int32(remUnsigned(uint64(uint32(a)), uint64(uint32(b)))))
	}
	env.CPU().SetReg(uint16ToU8(f.Rd), result)
	return fallthroughStep()
}

func execJal(env Env, entry *segment.Entry, pc uint64) step {
	f := decode.UnpackJtypeFast(entry.Instr)
	env.CPU().SetReg(f.Rd, pc+4)
	return branchTo(uint64(int64(pc) + int64(f.Offset)))
}

func execFastJal(env Env, entry *segment.Entry, pc uint64) step {
	f := decode.UnpackJtypeFast(entry.Instr)
	return branchTo(uint64(int64(pc) + int64(f.Offset)))
}

func execFastCall(env Env, entry *segment.Entry, pc uint64) step {
	f := decode.UnpackJtypeFast(entry.Instr)
	env.CPU().SetReg(riscv.RegRA, pc+4)
	return branchTo(uint64(int64(pc) + int64(f.Offset)))
}

// execJalr computes an indirect jump target at runtime, unlike every
// other control-transfer bytecode whose destination is folded into the
// operand word at decode time. A misaligned target can therefore only
// be caught here, not by ValidateBranchTarget during segment build.
func execJalr(env Env, entry *segment.Entry, pc uint64) (step, error) {
	rd := uint8(riscv.Rd(entry.Instr))
	rs1 := uint8(riscv.Rs1(entry.Instr))
	imm := int64(riscv.ImmI(entry.Instr))
	target := (env.CPU().GetReg(rs1) + uint64(imm)) &^ 1
	if target%riscv.InstrAlign(env.Compressed()) != 0 {
		return step{}, except.New(except.MisalignedInstruction, pc).WithData(target)
	}
	link := pc + 4
	if entry.Width == 2 {
		link = pc + 2 // expanded C.JALR
	}
	env.CPU().SetReg(rd, link)
	return branchTo(target), nil
}

func execLr(env Env, entry *segment.Entry) (step, error) {
	rd := uint8(riscv.Rd(entry.Instr))
	rs1 := uint8(riscv.Rs1(entry.Instr))
	size := uint64(4)
	if riscv.Funct3(entry.Instr) == 3 {
		size = 8
	}
	addr := env.CPU().GetReg(rs1)
	v, err := env.Memory().Load(addr, size)
	if err != nil {
		return step{}, err
	}
	env.CPU().SetReservation(addr)
	env.CPU().SetReg(rd, signExtendTo64(v, size))
	return fallthroughStep(), nil
}

func execSc(env Env, entry *segment.Entry) (step, error) {
	rd := uint8(riscv.Rd(entry.Instr))
	rs1 := uint8(riscv.Rs1(entry.Instr))
	rs2 := uint8(riscv.Rs2(entry.Instr))
	size := uint64(4)
	if riscv.Funct3(entry.Instr) == 3 {
		size = 8
	}
	addr := env.CPU().GetReg(rs1)
	if !env.CPU().CheckReservation(addr) {
		env.CPU().ClearReservation()
		env.CPU().SetReg(rd, 1) // failure
		return fallthroughStep(), nil
	}
	if err := env.Memory().Store(addr, size, env.CPU().GetReg(rs2)); err != nil {
		return step{}, err
	}
	env.CPU().ClearReservation()
	env.CPU().SetReg(rd, 0) // success
	return fallthroughStep(), nil
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func uint16ToU8(v uint16) uint8 { return uint8(v) }

func signExtendTo64(v uint64, size uint64) uint64 {
	switch size {
	case 1:
		return uint64(int64(int8(v)))
	case 2:
		return uint64(int64(int16(v)))
	case 4:
		return uint64(int64(int32(v)))
	default:
		return v
	}
}

func divSigned(a, b int64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	if a == -1<<63 && b == -1 {
		return uint64(a)
	}
	return uint64(a / b)
}

func divUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	return a / b
}

func remSigned(a, b int64) uint64 {
	if b == 0 {
		return uint64(a)
	}
	if a == -1<<63 && b == -1 {
		return 0
	}
	return uint64(a % b)
}

func remUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}

func mulHighUnsigned(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	return hi
}

func mulHighSigned(a, b int64) int64 {
	negA, negB := a < 0, b < 0
	ua, ub := uint64(a), uint64(b)
	if negA {
		ua = uint64(-a)
	}
	if negB {
		ub = uint64(-b)
	}
	hi, lo := bits.Mul64(ua, ub)
	if negA != negB {
		lo = ^lo + 1
		if lo == 0 {
			hi++
		}
		hi = ^hi
	}
	return int64(hi)
}

func mulHighSignedUnsigned(a int64, b uint64) int64 {
	neg := a < 0
	ua := uint64(a)
	if neg {
		ua = uint64(-a)
	}
	hi, lo := bits.Mul64(ua, b)
	if neg {
		lo = ^lo + 1
		if lo == 0 {
			hi++
		}
		hi = ^hi
	}
	return int64(hi)
}

// exceptFor maps a bytecode this build cannot execute yet to the
// closed exception it should raise.
func exceptFor(bc decode.Bytecode, pc uint64) error {
	switch bc {
	case decode.Invalid:
		return except.New(except.IllegalOpcode, pc)
	default:
		return except.New(except.UnimplementedInstruction, pc)
	}
}
