package decode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/riscv-core/riscv"
)

func TestExpandCAddi4Spn(t *testing.T) {
	// c.addi4spn x8, sp, 16  ->  addi x8, x2, 16
	// nzuimm=16 (0b0000010000): field bits [12:11]=nzuimm[5:4]=01,
	// [10:7]=nzuimm[9:6]=0000, [6]=nzuimm[2]=0, [5]=nzuimm[3]=0.
	raw := uint16(0)
	raw |= 0 << 0            // op = 00
	raw |= 0 << 13           // funct3 = 000
	raw |= (0b01) << 11      // imm[5:4]
	raw |= (0b0000) << 7     // imm[9:6]
	raw |= 0 << 6            // imm[2]
	raw |= 0 << 5            // imm[3]
	raw |= 0 << 2            // rd' = x8

	got := ExpandCompressed(raw)
	require.Equal(t, uint32(riscv.OpOpImm), riscv.Opcode(got))
	require.Equal(t, uint32(8), riscv.Rd(got))
	require.Equal(t, uint32(riscv.RegSP), riscv.Rs1(got))
	require.Equal(t, int32(16), riscv.ImmI(got))
}

func TestExpandCLi(t *testing.T) {
	// c.li x5, -1: funct3=010, imm[5]=1, rd=5, imm[4:0]=0x1F, op=01
	raw := uint16(0b010_1_00101_11111_01)
	got := ExpandCompressed(raw)
	require.Equal(t, uint32(riscv.OpOpImm), riscv.Opcode(got))
	require.Equal(t, uint32(5), riscv.Rd(got))
	require.Equal(t, uint32(riscv.RegZero), riscv.Rs1(got))
	require.Equal(t, int32(-1), riscv.ImmI(got))
}

func TestExpandCMv(t *testing.T) {
	// c.mv x10, x11: funct4=1000, rd=10, rs2=11, op=10
	raw := uint16(0)
	raw |= 0b1000 << 12
	raw |= 10 << 7
	raw |= 11 << 2
	raw |= 0b10
	got := ExpandCompressed(raw)
	require.Equal(t, uint32(riscv.OpOp), riscv.Opcode(got))
	require.Equal(t, uint32(10), riscv.Rd(got))
	require.Equal(t, uint32(0), riscv.Rs1(got))
	require.Equal(t, uint32(11), riscv.Rs2(got))
}

func TestExpandCJalr(t *testing.T) {
	// c.jalr x1: funct4=1001, rd=1(ra target), rs2=0, op=10
	raw := uint16(0)
	raw |= 0b1001 << 12
	raw |= 1 << 7
	raw |= 0 << 2
	raw |= 0b10
	got := ExpandCompressed(raw)
	require.Equal(t, uint32(riscv.OpJalr), riscv.Opcode(got))
	require.Equal(t, uint32(riscv.RegRA), riscv.Rd(got))
	require.Equal(t, uint32(1), riscv.Rs1(got))
	require.Equal(t, int32(0), riscv.ImmI(got))
}

func TestExpandCEbreak(t *testing.T) {
	raw := uint16(0)
	raw |= 0b1001 << 12
	raw |= 0 << 7
	raw |= 0 << 2
	raw |= 0b10
	got := ExpandCompressed(raw)
	require.Equal(t, uint32(riscv.OpSystem), riscv.Opcode(got))
	require.Equal(t, uint32(1), riscv.ImmCSR(got))
}

// TestExpandCSraiHighShamtStaysArithmetic exercises the RVC form of the
// same shamt[5]/funct7 aliasing that the plain 32-bit SRAI/SRLI
// encoding is prone to: c.srai's expansion ORs in a literal 0x400
// marker rather than deriving it from a raw funct7 field, so this
// checks that marker survives DecodeOne's classification once the
// shift amount reaches into [32,63].
func TestExpandCSraiHighShamtStaysArithmetic(t *testing.T) {
	// c.srai x8, x8, 40: funct3=100, op=01, selector=01, rd'=x8 (000),
	// shamt[5]=1 (bit12), shamt[4:0]=01000 (bits 6:2).
	raw := uint16(0x9421)
	got := ExpandCompressed(raw)
	require.Equal(t, uint32(riscv.OpOpImm), riscv.Opcode(got))
	require.Equal(t, int32(40), riscv.ImmI(got)&0x3F)

	d := DecodeOne(got)
	require.Equal(t, Srai, d.Bytecode)
}

func TestExpandCSrliHighShamtStaysLogical(t *testing.T) {
	// same as above with selector=00 (C.SRLI instead of C.SRAI).
	raw := uint16(0x9021)
	got := ExpandCompressed(raw)
	require.Equal(t, uint32(riscv.OpOpImm), riscv.Opcode(got))
	require.Equal(t, int32(40), riscv.ImmI(got)&0x3F)

	d := DecodeOne(got)
	require.Equal(t, Srli, d.Bytecode)
}

func TestExpandCAddi16Sp(t *testing.T) {
	// c.addi16sp sp, -32: rd=x2(sp), imm=-32 (nzimm[9:4] = -2 = 0b111110,
	// scattered across bits [12|6|5|4:3|2] as nzimm[9|4|6|8:7|5]).
	raw := uint16(0)
	raw |= 0b011 << 13  // funct3
	raw |= 1 << 12      // bit 12 = nzimm[9]
	raw |= 2 << 7       // rd = sp
	raw |= 0b01111 << 2 // bits [6:2] = nzimm[4|6|8:7|5]
	raw |= 0b01

	got := ExpandCompressed(raw)
	require.Equal(t, uint32(riscv.OpOpImm), riscv.Opcode(got))
	require.Equal(t, uint32(riscv.RegSP), riscv.Rd(got))
	require.Equal(t, uint32(riscv.RegSP), riscv.Rs1(got))
	require.Equal(t, int32(-32), riscv.ImmI(got))
}
