// Package machine ties the register file, address space, syscall table,
// and translator registry into one runnable guest: it resolves the
// execute segment for the current PC, drives one of dispatch's three
// loop shapes over it, and implements the narrow interfaces
// (dispatch.Env, syscall.Context, translate.Host) those packages expect
// back from their host. It plays the role the reference design's Machine
// class does in machine.hpp/machine.cpp - the object a caller Steps or
// Simulates - minus everything downstream of execution (proof witnesses,
// preimage oracles) that belongs to a different concern entirely.
package machine

import (
	"math"

	"github.com/example/riscv-core/cpu"
	"github.com/example/riscv-core/except"
	"github.com/example/riscv-core/internal/rvabi"
	"github.com/example/riscv-core/memory"
	"github.com/example/riscv-core/riscv"
	"github.com/example/riscv-core/segment"
	"github.com/example/riscv-core/syscall"
	"github.com/example/riscv-core/translate"

	"github.com/example/riscv-core/dispatch"
)

// Mode selects which of dispatch's interchangeable loop shapes Run drives.
type Mode int

const (
	ModeSwitch Mode = iota
	ModeThreaded
	ModeTailCall
)

// Machine owns one hart's architectural state and the address space it
// executes against. The zero value is not usable; construct with New.
type Machine struct {
	cpu         *cpu.CPU
	mem         *memory.Memory
	syscalls    *syscall.Table
	translators *translate.Registry
	mode        Mode
	compressed  bool

	segments map[uint64]*segment.Segment

	exited   bool
	exitCode uint8
}

// New constructs a Machine over an already-populated address space, with
// an empty register file and the mmap-family syscalls pre-installed.
func New(xlen riscv.XLen, mem *memory.Memory) *Machine {
	return &Machine{
		cpu:         cpu.New(xlen),
		mem:         mem,
		syscalls:    syscall.NewTable(),
		translators: translate.NewRegistry(),
		mode:        ModeThreaded,
		segments:    make(map[uint64]*segment.Segment),
	}
}

func (mach *Machine) CPU() *cpu.CPU                    { return mach.cpu }
func (mach *Machine) Memory() *memory.Memory           { return mach.mem }
func (mach *Machine) Mem() *memory.Memory              { return mach.mem }
func (mach *Machine) Syscalls() *syscall.Table         { return mach.syscalls }
func (mach *Machine) Translators() *translate.Registry { return mach.translators }
func (mach *Machine) Exited() bool                     { return mach.exited }
func (mach *Machine) Compressed() bool                 { return mach.compressed }
func (mach *Machine) ExitCode() uint8                  { return mach.exitCode }

// SetMode picks which dispatch loop Run uses on its next call.
func (mach *Machine) SetMode(m Mode) { mach.mode = m }

// SetCompressed enables 16-bit-granularity segment building for RVC guests.
func (mach *Machine) SetCompressed(v bool) { mach.compressed = v }

// segmentFor returns the execute segment covering pc, building and
// caching one over the enclosing contiguous exec range if this is the
// first fetch there.
func (mach *Machine) segmentFor(pc uint64) (*segment.Segment, error) {
	for _, seg := range mach.segments {
		if seg.Contains(pc) {
			return seg, nil
		}
	}
	begin, end, ok := mach.mem.ExecRange(pc)
	if !ok && mach.mem.PageFaultHandler != nil && mach.mem.PageFaultHandler(mach.mem, pc) {
		begin, end, ok = mach.mem.ExecRange(pc)
	}
	if !ok {
		return nil, except.New(except.ExecutionSpaceProtectionFault, pc)
	}
	bytes := mach.mem.Bytes(begin, end-begin)
	seg := segment.Build(begin, end, bytes, mach.compressed)
	mach.segments[begin] = seg
	return seg, nil
}

// Run executes up to imax instructions starting at the current PC,
// crossing segment boundaries transparently, and returns the number of
// instructions actually executed. A non-nil err is a fault the caller
// should surface; MaxInstructionsReached (an EBREAK/STOP) instead marks
// the machine exited and returns a nil error.
func (mach *Machine) Run(imax uint64) (uint64, error) {
	var total uint64
	for total < imax && !mach.exited {
		seg, err := mach.segmentFor(mach.cpu.PC)
		if err != nil {
			return total, err
		}

		var res dispatch.Result
		switch mach.mode {
		case ModeSwitch:
			res = dispatch.RunSwitch(mach, seg, mach.cpu.PC, imax-total)
		case ModeTailCall:
			res = dispatch.RunTailCall(mach, seg, mach.cpu.PC, imax-total)
		default:
			res = dispatch.RunThreaded(mach, seg, mach.cpu.PC, imax-total)
		}

		total += res.Executed
		mach.cpu.PC = res.NextPC

		if res.Err != nil {
			if except.IsOverflow(res.Err) {
				mach.exited = true
				mach.exitCode = uint8(mach.cpu.GetReg(10))
				return total, nil
			}
			return total, res.Err
		}
	}
	return total, nil
}

// Step runs a single instruction.
func (mach *Machine) Step() error {
	_, err := mach.Run(1)
	return err
}

// HandleSyscall services the SYSCALL bytecode: a7 selects the handler,
// a0..a6 are its arguments, and the result lands back in a0. Any
// syscall that can change the page table's exec/mapping shape drops the
// segment cache, since a cached Segment's bytes are a point-in-time
// snapshot.
func (mach *Machine) HandleSyscall() error {
	num := int(mach.cpu.GetReg(17))
	if num == rvabi.SysExit || num == rvabi.SysExitGroup {
		mach.exited = true
		mach.exitCode = uint8(mach.cpu.GetReg(10))
		return except.New(except.MaxInstructionsReached, mach.cpu.PC).WithMessage("exit")
	}
	mach.syscalls.Dispatch(mach, num)
	switch num {
	case rvabi.SysMmap, rvabi.SysMunmap, rvabi.SysMprotect, rvabi.SysMremap, rvabi.SysMadvise:
		mach.segments = make(map[uint64]*segment.Segment)
	}
	return nil
}

// Arg implements syscall.Context: a0..a6 are argument registers x10..x16.
func (mach *Machine) Arg(i int) uint64 { return mach.cpu.GetReg(uint8(10 + i)) }

// SetResult implements syscall.Context: the result register is a0/x10.
func (mach *Machine) SetResult(v uint64) { mach.cpu.SetReg(10, v) }

// HandleTranslator hands control to the translator registered under id.
func (mach *Machine) HandleTranslator(id int32) (uint64, error) {
	h := mach.translators.Lookup(id)
	if h == nil {
		return 0, except.New(except.IllegalOperation, mach.cpu.PC).WithMessage("no translator registered for this address")
	}
	return h.ExecuteOne(mach, mach.cpu.PC)
}

// The remaining methods implement translate.Host, so a registered
// translate.Handler can read/write memory and raise syscalls/exceptions
// through the same Machine that would otherwise be interpreting its code.

func (mach *Machine) Load(addr, size uint64) (uint64, error) { return mach.mem.Load(addr, size) }
func (mach *Machine) Store(addr, size, value uint64) error   { return mach.mem.Store(addr, size, value) }
func (mach *Machine) Syscall() error                         { return mach.HandleSyscall() }

func (mach *Machine) TriggerException(kind except.Kind, addr uint64) error {
	return except.New(kind, addr)
}

func (mach *Machine) SqrtF32(v float32) float32 { return float32(math.Sqrt(float64(v))) }
func (mach *Machine) SqrtF64(v float64) float64 { return math.Sqrt(v) }

// Fork returns a child Machine with its own register file and a memory
// space related to this one by copy-on-write, mirroring the guest's
// clone/fork syscalls. The child shares this Machine's syscall table and
// translator registry, since those are process-wide configuration rather
// than per-hart state. minimal selects the minimal_fork variant, which
// starts the child with an empty page table instead of sharing every page.
func (mach *Machine) Fork(minimal bool) *Machine {
	return &Machine{
		cpu:         mach.cpu.Fork(),
		mem:         mach.mem.Fork(minimal),
		syscalls:    mach.syscalls,
		translators: mach.translators,
		mode:        mach.mode,
		compressed:  mach.compressed,
		segments:    make(map[uint64]*segment.Segment),
	}
}
