// Package segment holds the execute-segment abstraction: an immutable
// code range backed by a decoder cache. It is grounded on
// original_source/lib/libriscv's DecoderCache<W> (decoder_cache.hpp),
// translated from a templated C++ array-of-bitfields into a plain Go
// slice of a small struct.
package segment

import "github.com/example/riscv-core/decode"

// Entry is one decoder-cache slot: the rewritten operand word, the
// bytecode id, and this slot's position within its containing block.
// IdxEnd/InstrCount are only meaningful on a block's head slot; the
// dispatcher reads InstrCount once per block instead of once per
// instruction and does not read IdxEnd.
type Entry struct {
	Instr      uint32
	Bytecode   decode.Bytecode
	Width      uint8  // 2 for a compressed encoding, 4 otherwise
	IdxEnd     uint16 // slot offset from this entry to the end of its block
	InstrCount uint16 // instructions in the block, valid on the head slot
	BlockBytes uint16 // byte length of the block, valid on the head slot

	// TranslatorID is populated only for the Translator bytecode: the
	// id translate.Registry.Register returned for the binary-translator
	// plug-in (translate.Handler). Kept as an opaque id
	// rather than a function value so decode never imports translate.
	TranslatorID int32
}

// Segment is an immutable code region: [Begin, End) of guest address
// space, the raw bytes backing it (snapshotted at construction time,
// since exec pages are immutable for the segment's lifetime), and one
// decoder-cache entry per minimum instruction slot.
type Segment struct {
	Begin, End uint64
	Bytes      []byte
	Cache      []Entry
	Divisor    uint64 // 2 if compressed enabled, else 4
}

// New builds an (as yet undecoded) segment over [begin, end) with a
// decoder-cache sized to the given slot divisor.
func New(begin, end uint64, bytes []byte, divisor uint64) *Segment {
	slots := (end - begin) / divisor
	return &Segment{
		Begin:   begin,
		End:     end,
		Bytes:   bytes,
		Cache:   make([]Entry, slots),
		Divisor: divisor,
	}
}

// Contains reports whether pc falls within this segment's byte range.
func (s *Segment) Contains(pc uint64) bool {
	return pc >= s.Begin && pc < s.End
}

// SlotIndex converts a guest pc within this segment to a decoder-cache index.
func (s *Segment) SlotIndex(pc uint64) uint64 {
	return (pc - s.Begin) / s.Divisor
}

// EntryAt returns a pointer to the decoder-cache slot for pc.
func (s *Segment) EntryAt(pc uint64) *Entry {
	return &s.Cache[s.SlotIndex(pc)]
}
