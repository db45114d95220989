package segment

import (
	"encoding/binary"

	"github.com/example/riscv-core/decode"
)

// Build decodes every instruction slot in [begin, end) over bytes and
// fills in the per-block IdxEnd/InstrCount/BlockBytes bookkeeping on
// each block's head entry, following the reference design's
// decode_bytecodes()/register_forward_jump() pass over a freshly
// mapped execute segment. compressed enables 16-bit slot granularity;
// when false every instruction is assumed to be a 4-byte word.
func Build(begin, end uint64, bytes []byte, compressed bool) *Segment {
	divisor := uint64(4)
	if compressed {
		divisor = 2
	}
	seg := New(begin, end, bytes, divisor)

	pos := uint64(0)
	total := uint64(len(bytes))
	for pos < total {
		blockStart := pos
		blockStartIdx := seg.SlotIndex(begin + blockStart)
		instrCount := uint16(0)
		blockEnded := false

		for pos < total && !blockEnded {
			width := uint64(4)
			var raw uint32
			if compressed && (bytes[pos]&0x3) != 0x3 {
				width = 2
				raw = decode.ExpandCompressed(binary.LittleEndian.Uint16(bytes[pos : pos+2]))
			} else if pos+4 <= total {
				raw = binary.LittleEndian.Uint32(bytes[pos : pos+4])
			} else {
				pos = total // trailing bytes too short for a word
				break
			}

			d := decode.DecodeOne(raw)
			idx := seg.SlotIndex(begin + pos)

			pc := begin + pos
			if isBranch(d.Bytecode) {
				f := decode.UnpackItypeFast(d.Operand)
				if err := decode.ValidateBranchTarget(pc, int32(f.Imm), begin, end); err != nil {
					d = decode.Decoded{Bytecode: decode.Invalid, Operand: raw}
				}
			}

			seg.Cache[idx] = Entry{Instr: d.Operand, Bytecode: d.Bytecode, Width: uint8(width)}
			instrCount++
			pos += width
			blockEnded = decode.IsBlockEnd(d.Bytecode)
		}

		head := seg.Cache[blockStartIdx]
		head.InstrCount = instrCount
		head.BlockBytes = uint16(pos - blockStart)
		head.IdxEnd = uint16(seg.SlotIndex(begin+pos) - blockStartIdx)
		seg.Cache[blockStartIdx] = head
	}
	return seg
}

func isBranch(bc decode.Bytecode) bool {
	switch bc {
	case decode.Beq, decode.Bne, decode.Blt, decode.Bge, decode.Bltu, decode.Bgeu, decode.BeqFw, decode.BneFw:
		return true
	default:
		return false
	}
}
