package decode

import "github.com/example/riscv-core/riscv"

// ExpandCompressed turns a 16-bit RVC encoding into its standard 32-bit
// equivalent, so the rest of the pipeline (DecodeOne, block building)
// never has to know compressed forms exist. The case layout and bit
// shuffles are ported from a clean-room RVC decode table covering the
// C0/C1/C2 opcode groups; where the source expands straight to an
// existing instruction (C.ADDI, C.LW, ...) this produces the identical
// standard encoding that instruction would have used.
func ExpandCompressed(in uint16) uint32 {
	if in == 0 {
		return 0 // illegal instruction; DecodeOne's default case traps it
	}

	const rvcRegOffset = 8

	crd := func() uint32 { return uint32(in>>7&0x7) + rvcRegOffset }
	crs2 := func() uint32 { return uint32(in>>2&0x7) + rvcRegOffset }

	switch in>>11&0x1c | uint16(in&0x3) {
	case 0x00: // C.ADDI4SPN
		imm := uint32(in >> 5 & 0xff)
		imm = imm&0xc0>>2 | imm&0x3c<<4 | imm&0x2<<1 | imm&0x1<<3
		return encodeI(riscv.OpOpImm, crs2(), 0, riscv.RegSP, int32(imm))

	case 0x08: // C.LW
		imm5 := uint32(in>>8&0x1c | in>>5&0x3)
		v := (imm5<<5 | imm5) & 0x3e << 1
		return encodeI(riscv.OpLoad, crs2(), 2, crd(), int32(v))

	case 0x0C: // C.LD (RV64)
		imm5 := uint32(in>>8&0x1c | in>>5&0x3)
		v := (imm5<<6 | imm5<<1) & 0xf8
		return encodeI(riscv.OpLoad, crs2(), 3, crd(), int32(v))

	case 0x18: // C.SW
		imm5 := uint32(in>>8&0x1c | in>>5&0x3)
		v := (imm5<<5 | imm5) << 1 & 0x7c
		return encodeS(riscv.OpStore, 2, crd(), crs2(), int32(v))

	case 0x1C: // C.SD (RV64)
		imm5 := uint32(in>>8&0x1c | in>>5&0x3)
		v := (imm5<<5 | imm5) << 1 & 0xf8
		return encodeS(riscv.OpStore, 3, crd(), crs2(), int32(v))

	case 0x01: // C.NOP / C.ADDI
		r := uint32(in >> 7 & 0x1f)
		imm := signExt6(uint32(in>>7&0x20 | in>>2&0x1f))
		return encodeI(riscv.OpOpImm, r, 0, r, imm)

	case 0x05: // C.ADDIW (RV64)
		r := uint32(in >> 7 & 0x1f)
		imm := signExt6(uint32(in>>7&0x20 | in>>2&0x1f))
		return encodeI(riscv.OpOpImm32, r, 0, r, imm)

	case 0x09: // C.LI
		r := uint32(in >> 7 & 0x1f)
		imm := signExt6(uint32(in>>7&0x20 | in>>2&0x1f))
		return encodeI(riscv.OpOpImm, r, 0, riscv.RegZero, imm)

	case 0x0D: // C.ADDI16SP / C.LUI
		r := uint32(in >> 7 & 0x1f)
		raw := uint32(in>>7&0x20 | in>>2&0x1f)
		if r != riscv.RegSP {
			imm := signExt(raw<<12, 17)
			return encodeU(riscv.OpLui, r, imm)
		}
		v := raw&0x20<<4 | raw&0x10 | raw&0x8<<3 | raw&0x6<<6 | raw&0x1<<5
		imm := signExt(v, 9)
		return encodeI(riscv.OpOpImm, riscv.RegSP, 0, riscv.RegSP, imm)

	case 0x11: // shift/logic group on rd'/rs1'
		r := crd()
		switch in >> 10 & 0x3 {
		case 0x00: // C.SRLI
			imm := int32(in&0x1000>>7 | in>>2&0x1f)
			return encodeI(riscv.OpOpImm, r, 5, r, imm)
		case 0x01: // C.SRAI
			imm := int32(in&0x1000>>7|in>>2&0x1f) | 0x400
			return encodeI(riscv.OpOpImm, r, 5, r, imm)
		case 0x02: // C.ANDI
			imm := signExt6(uint32(in&0x1000>>7 | in>>2&0x1f))
			return encodeI(riscv.OpOpImm, r, 7, r, imm)
		default:
			r2 := crs2()
			switch in>>8&0x4 | in>>5&0x3 {
			case 0x0:
				return encodeR(riscv.OpOp, r, 0, r, r2, 0x20) // C.SUB
			case 0x1:
				return encodeR(riscv.OpOp, r, 4, r, r2, 0) // C.XOR
			case 0x2:
				return encodeR(riscv.OpOp, r, 6, r, r2, 0) // C.OR
			case 0x3:
				return encodeR(riscv.OpOp, r, 7, r, r2, 0) // C.AND
			case 0x4:
				return encodeR(riscv.OpOp32, r, 0, r, r2, 0x20) // C.SUBW
			case 0x5:
				return encodeR(riscv.OpOp32, r, 0, r, r2, 0) // C.ADDW
			}
			return 0
		}

	case 0x15: // C.J
		v := uint32(in >> 2 & 0x7ff)
		off := v&0x200>>5 | v&0x40<<4 | v&0x5a0<<1 | v&0x10<<3 | v&0xe | v&0x1<<5
		imm := signExt(off, 11)
		return encodeJ(riscv.OpJal, riscv.RegZero, imm)

	case 0x19: // C.BEQZ
		r := crd()
		v := uint32(in>>5&0xe0 | in>>2&0x1f)
		off := v&0x80<<1 | v&0x60>>2 | v&0x18<<3 | v&0x6 | v&0x1<<5
		imm := signExt(off, 8)
		return encodeB(riscv.OpBranch, 0, r, riscv.RegZero, imm)

	case 0x1D: // C.BNEZ
		r := crd()
		v := uint32(in>>5&0xe0 | in>>2&0x1f)
		off := v&0x80<<1 | v&0x60>>2 | v&0x18<<3 | v&0x6 | v&0x1<<5
		imm := signExt(off, 8)
		return encodeB(riscv.OpBranch, 1, r, riscv.RegZero, imm)

	case 0x02: // C.SLLI
		r := uint32(in >> 7 & 0x1f)
		imm := int32(in&0x1000>>7 | in>>2&0x1f)
		return encodeI(riscv.OpOpImm, r, 1, r, imm)

	case 0x0A: // C.LWSP
		r := uint32(in >> 7 & 0x1f)
		raw := uint32(in>>7&0x20 | in>>2&0x1f)
		v := (raw<<6 | raw) & 0xfc
		return encodeI(riscv.OpLoad, r, 2, riscv.RegSP, int32(v))

	case 0x0E: // C.LDSP (RV64)
		r := uint32(in >> 7 & 0x1f)
		raw := uint32(in>>7&0x20 | in>>2&0x1f)
		v := (raw<<6 | raw) & 0x1f8
		return encodeI(riscv.OpLoad, r, 3, riscv.RegSP, int32(v))

	case 0x12: // C.JR/C.MV/C.EBREAK/C.JALR/C.ADD
		r1 := uint32(in >> 7 & 0x1f)
		r2 := uint32(in >> 2 & 0x1f)
		b := in & 0x1000
		switch {
		case b == 0 && r2 == 0: // C.JR
			return encodeI(riscv.OpJalr, riscv.RegZero, 0, r1, 0)
		case b == 0: // C.MV
			return encodeR(riscv.OpOp, r1, 0, riscv.RegZero, r2, 0)
		case b != 0 && r1 == 0 && r2 == 0: // C.EBREAK
			return encodeI(riscv.OpSystem, 0, 0, 0, 1)
		case b != 0 && r2 == 0: // C.JALR
			return encodeI(riscv.OpJalr, riscv.RegRA, 0, r1, 0)
		default: // C.ADD
			return encodeR(riscv.OpOp, r1, 0, r1, r2, 0)
		}

	case 0x1A: // C.SWSP
		r := uint32(in >> 2 & 0x1f)
		raw := uint32(in >> 7 & 0x3f)
		v := (raw<<6 | raw) & 0xfc
		return encodeS(riscv.OpStore, 2, riscv.RegSP, r, int32(v))

	case 0x1E: // C.SDSP (RV64)
		r := uint32(in >> 2 & 0x1f)
		raw := uint32(in >> 7 & 0x3f)
		v := (raw<<6 | raw) & 0x1f8
		return encodeS(riscv.OpStore, 3, riscv.RegSP, r, int32(v))
	}

	return 0
}

func signExt(v uint32, bit uint) int32 {
	shift := 31 - bit
	return int32(v<<shift) >> shift
}

func signExt6(v uint32) int32 { return signExt(v, 5) }

func encodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20&0xFFF00000 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (u&0x1F)<<7 | opcode
}

func encodeB(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	bit12 := (u >> 12) & 1
	bit11 := (u >> 11) & 1
	bits10_5 := (u >> 5) & 0x3F
	bits4_1 := (u >> 1) & 0xF
	return bit12<<31 | bits10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | bits4_1<<8 | bit11<<7 | opcode
}

func encodeU(opcode, rd uint32, imm int32) uint32 {
	return uint32(imm)&0xFFFFF000 | rd<<7 | opcode
}

func encodeJ(opcode, rd uint32, imm int32) uint32 {
	u := uint32(imm)
	bit20 := (u >> 20) & 1
	bits10_1 := (u >> 1) & 0x3FF
	bit11 := (u >> 11) & 1
	bits19_12 := (u >> 12) & 0xFF
	return bit20<<31 | bits10_1<<21 | bit11<<20 | bits19_12<<12 | rd<<7 | opcode
}
