package decode

// Fast-path decoder entries repack an instruction's operands into one of
// six compact 32-bit layouts instead of keeping the original bit
// layout. Five are ported field-for-field from threaded_bytecodes.hpp's
// FasterItype/FasterOpType/FasterImmediate/FasterMove/FasterJtype unions;
// UtypeFast is this package's own.
// Go has no bitfield unions, so each layout gets a pack/unpack pair
// operating on a plain uint32.

// ItypeFast packs (imm:16, rs2:8, rs1:8) - ADDI-class, loads, stores, branches.
type ItypeFast struct {
	Imm int16
	Rs2 uint8
	Rs1 uint8
}

func PackItypeFast(imm int16, rs2, rs1 uint8) uint32 {
	return uint32(uint16(imm)) | uint32(rs2)<<16 | uint32(rs1)<<24
}

func UnpackItypeFast(w uint32) ItypeFast {
	return ItypeFast{
		Imm: int16(w & 0xFFFF),
		Rs2: uint8(w >> 16),
		Rs1: uint8(w >> 24),
	}
}

// OpTypeFast packs (rd:16, rs2:8, rs1:8) - register-register ops.
type OpTypeFast struct {
	Rd  uint16
	Rs2 uint8
	Rs1 uint8
}

func PackOpTypeFast(rd uint16, rs2, rs1 uint8) uint32 {
	return uint32(rd) | uint32(rs2)<<16 | uint32(rs1)<<24
}

func UnpackOpTypeFast(w uint32) OpTypeFast {
	return OpTypeFast{
		Rd:  uint16(w & 0xFFFF),
		Rs2: uint8(w >> 16),
		Rs1: uint8(w >> 24),
	}
}

// ImmediateFast packs (rd:8, zero:8, imm:16) - LI.
type ImmediateFast struct {
	Rd  uint8
	Imm int16
}

func PackImmediateFast(rd uint8, imm int16) uint32 {
	return uint32(rd) | uint32(uint16(imm))<<16
}

func UnpackImmediateFast(w uint32) ImmediateFast {
	return ImmediateFast{
		Rd:  uint8(w & 0xFF),
		Imm: int16(w >> 16),
	}
}

// UtypeFast packs (imm:20 in [31:12], rd:5 in [4:0]) - LUI/AUIPC. The 20-bit U-type
// immediate already sits in bits [31:12] of the raw encoding
// (riscv.ImmU keeps it there rather than shifting it down), so Imm is
// stored pre-shifted and the always-zero low 12 bits are reused to hold
// Rd instead of being wasted, unlike ImmediateFast which only had room
// for 16 immediate bits and silently dropped bits [15:12].
type UtypeFast struct {
	Imm int32 // pre-shifted: bits [31:12] hold the value, bits [11:0] are 0
	Rd  uint8
}

func PackUtypeFast(imm int32, rd uint8) uint32 {
	return uint32(imm)&^0xFFF | uint32(rd)&0x1F
}

func UnpackUtypeFast(w uint32) UtypeFast {
	return UtypeFast{
		Imm: int32(w &^ 0xFFF),
		Rd:  uint8(w & 0x1F),
	}
}

// MoveFast packs (rd:16, rs1:16) - MV.
type MoveFast struct {
	Rd  uint16
	Rs1 uint16
}

func PackMoveFast(rd, rs1 uint16) uint32 {
	return uint32(rd) | uint32(rs1)<<16
}

func UnpackMoveFast(w uint32) MoveFast {
	return MoveFast{Rd: uint16(w & 0xFFFF), Rs1: uint16(w >> 16)}
}

// JtypeFast packs (offset:24, rd:8) - JAL. Offset is always the
// pc-relative jump offset; no absolute destination is stored and no
// in-segment check is made when it is packed.
type JtypeFast struct {
	Offset int32
	Rd     uint8
}

func PackJtypeFast(offset int32, rd uint8) uint32 {
	return uint32(offset)&0x00FFFFFF | uint32(rd)<<24
}

func UnpackJtypeFast(w uint32) JtypeFast {
	off := int32(w & 0x00FFFFFF)
	if off&0x00800000 != 0 { // sign-extend 24 bits
		off |= ^int32(0x00FFFFFF)
	}
	return JtypeFast{Offset: off, Rd: uint8(w >> 24)}
}
