// Package dispatch executes a segment's decoder-cache entries against
// architectural state. It provides one shared table of per-bytecode
// handler functions and three interchangeable loop shapes around it -
// a plain switch, a function-pointer "threaded" loop, and a
// continuation-passing "tail-call" loop - grounded on the reference
// design's cpu_dispatch.cpp (NEXT_INSTR/NEXT_BLOCK macros for the
// switch and computed-goto forms) and tailcall_dispatch.cpp (the
// INSTRUCTION()-returns-next-handler pattern), translated into forms Go
// can express without computed goto or guaranteed tail calls.
package dispatch

import (
	"github.com/example/riscv-core/cpu"
	"github.com/example/riscv-core/memory"
	"github.com/example/riscv-core/segment"
)

// Env is the state a handler needs beyond the current instruction: the
// register file, the address space, and hooks back into the owning
// machine for the two operations no handler can service on its own -
// system calls and handing control to a registered binary translator.
type Env interface {
	CPU() *cpu.CPU
	Memory() *memory.Memory

	// Compressed reports whether the C extension is enabled for the
	// running guest, which relaxes indirect-jump alignment from 4 bytes
	// to 2.
	Compressed() bool

	// HandleSyscall services the SYSCALL bytecode using the calling
	// convention's a7 register to select a handler.
	HandleSyscall() error

	// HandleTranslator hands control to the translator registered under
	// id, returning the guest PC execution resumes at.
	HandleTranslator(id int32) (nextPC uint64, err error)
}

// Handler executes one decoder-cache entry against env, returning the
// error to propagate (an *except.Exception for a normal trap) or nil to
// continue. Handlers do not advance PC themselves for straight-line
// bytecodes; the surrounding loop advances it by the entry's width after
// each instruction.
type Handler func(env Env, seg *segment.Segment, entry *segment.Entry) error
