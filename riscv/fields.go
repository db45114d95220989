package riscv

// Field extraction for standard 32-bit RISC-V instruction words. These
// mirror its parseImmType*/parseRd/parseRs1/... helpers
// (rvgo/slow/parse.go) but operate on plain uint32 instead of the
// arithmetic-circuit U64 abstraction the reference implementation needed for its EVM
// witness backend - this core runs natively, so there is no reason to
// route every shift and mask through circuit-friendly primitives.

func Opcode(instr uint32) uint32 { return instr & 0x7F }
func Rd(instr uint32) uint32     { return (instr >> 7) & 0x1F }
func Funct3(instr uint32) uint32 { return (instr >> 12) & 0x7 }
func Rs1(instr uint32) uint32    { return (instr >> 15) & 0x1F }
func Rs2(instr uint32) uint32    { return (instr >> 20) & 0x1F }
func Funct7(instr uint32) uint32 { return instr >> 25 }

func signExtend(v uint32, signBit uint) int32 {
	shift := 31 - signBit
	return int32(v<<shift) >> shift
}

// ImmI decodes the I-type immediate (loads, JALR, ADDI-class, CSR).
func ImmI(instr uint32) int32 {
	return signExtend(instr>>20, 11)
}

// ImmS decodes the S-type immediate (stores).
func ImmS(instr uint32) int32 {
	v := ((instr >> 25) << 5) | ((instr >> 7) & 0x1F)
	return signExtend(v, 11)
}

// ImmB decodes the B-type immediate (branches); LSB is always 0.
func ImmB(instr uint32) int32 {
	v := (((instr >> 8) & 0xF) << 1) |
		(((instr >> 25) & 0x3F) << 5) |
		(((instr >> 7) & 0x1) << 11) |
		((instr >> 31) << 12)
	return signExtend(v, 12)
}

// ImmU decodes the U-type immediate (LUI, AUIPC); already shifted to
// occupy bits [31:12] as the caller expects.
func ImmU(instr uint32) int32 {
	return int32(instr & 0xFFFFF000)
}

// ImmJ decodes the J-type immediate (JAL); LSB is always 0.
func ImmJ(instr uint32) int32 {
	v := (((instr >> 21) & 0x3FF) << 1) |
		(((instr >> 20) & 0x1) << 11) |
		(((instr >> 12) & 0xFF) << 12) |
		((instr >> 31) << 20)
	return signExtend(v, 20)
}

// ImmCSR decodes the 12-bit CSR address (top bits of an I-type word).
func ImmCSR(instr uint32) uint32 {
	return instr >> 20
}
