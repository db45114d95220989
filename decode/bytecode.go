// Package decode turns a raw RISC-V encoding into the compact bytecode
// form the dispatcher consumes, and reports which bytecodes end a
// straight-line block (segment.Build does the grouping). It is grounded on
// original_source/lib/libriscv's decode_bytecodes.cpp /
// threaded_bytecodes.hpp: the same closed bytecode enumeration and the
// same operand-word repacking, expressed as Go structs instead of C
// bitfield unions.
package decode

// Bytecode is the small closed enumeration of internal instruction ids
// the dispatcher switches, threads, or tail-calls on.
type Bytecode uint8

const (
	Invalid Bytecode = iota

	Addi
	Li
	Mv
	Slli
	Slti
	Sltiu
	Xori
	Srli
	Srai
	Ori
	Andi

	Lui
	Auipc

	Ldb
	Ldbu
	Ldh
	Ldhu
	Ldw
	Ldwu
	Ldd

	Stb
	Sth
	Stw
	Std

	Beq
	Bne
	Blt
	Bge
	Bltu
	Bgeu
	BeqFw
	BneFw

	Jal
	Jalr
	FastJal
	FastCall

	OpAdd
	OpSub
	OpSll
	OpSlt
	OpSltu
	OpXor
	OpSrl
	OpOr
	OpAnd
	OpMul
	OpMulh
	OpMulhsu
	OpMulhu
	OpDiv
	OpDivu
	OpRem
	OpRemu
	OpSra

	Addiw
	OpAddw
	OpSubw
	OpSllw
	OpSrlw
	OpSraw
	OpMulw
	OpDivw
	OpDivuw
	OpRemw
	OpRemuw

	Syscall
	Stop
	Nop

	FLoad
	FStore
	FArith

	AmoOp
	Lr
	Sc
	Fence

	System // CSR instructions

	Translator

	// Vector bytecodes. DecodeOne does not produce them: every OP-V
	// encoding decodes to Function and traps with UnimplementedInstruction.
	VLE32
	VSE32
	VFAddVV

	Function // decode-incomplete fallback: Entry.Instr holds the raw word

	bytecodeCount
)

// Count is the number of distinct bytecodes, for sizing lookup tables.
const Count = int(bytecodeCount)

func (b Bytecode) String() string {
	names := [...]string{
		"Invalid", "Addi", "Li", "Mv", "Slli", "Slti", "Sltiu", "Xori", "Srli", "Srai", "Ori", "Andi",
		"Lui", "Auipc",
		"Ldb", "Ldbu", "Ldh", "Ldhu", "Ldw", "Ldwu", "Ldd",
		"Stb", "Sth", "Stw", "Std",
		"Beq", "Bne", "Blt", "Bge", "Bltu", "Bgeu", "BeqFw", "BneFw",
		"Jal", "Jalr", "FastJal", "FastCall",
		"OpAdd", "OpSub", "OpSll", "OpSlt", "OpSltu", "OpXor", "OpSrl", "OpOr", "OpAnd",
		"OpMul", "OpMulh", "OpMulhsu", "OpMulhu", "OpDiv", "OpDivu", "OpRem", "OpRemu", "OpSra",
		"Addiw", "OpAddw", "OpSubw", "OpSllw", "OpSrlw", "OpSraw", "OpMulw", "OpDivw", "OpDivuw", "OpRemw", "OpRemuw",
		"Syscall", "Stop", "Nop",
		"FLoad", "FStore", "FArith",
		"AmoOp", "Lr", "Sc", "Fence",
		"System",
		"Translator",
		"VLE32", "VSE32", "VFAddVV",
		"Function",
	}
	if int(b) < len(names) {
		return names[b]
	}
	return "?"
}

// IsBlockEnd reports whether a bytecode terminates a basic block: a
// branch, jump, system call, environment instruction, or STOP always
// ends straight-line decoding.
func IsBlockEnd(b Bytecode) bool {
	switch b {
	case Beq, Bne, Blt, Bge, Bltu, Bgeu, BeqFw, BneFw,
		Jal, Jalr, FastJal, FastCall,
		Syscall, Stop, System, Fence,
		Translator, Function, Invalid:
		return true
	default:
		return false
	}
}
