// Package rvabi names the Linux/RISC-V ABI constants the emulated guest
// observes: syscall numbers for the memory-mapping family, and the bit
// layouts of prot/flags/advice words. Keeping them here, typed, means the
// syscall and memory packages never carry magic numbers.
package rvabi

// Syscall numbers (Linux riscv64 ABI) relevant to the memory-mapping family.
const (
	SysMremap   = 163
	SysMunmap   = 215
	SysMmap     = 222
	SysMprotect = 226
	SysMadvise  = 233
)

// Syscall numbers for the minimum I/O and process-exit surface a
// runnable guest binary needs.
const (
	SysRead      = 63
	SysWrite     = 64
	SysExit      = 93
	SysExitGroup = 94
)

// PROT_* bits, as passed to mmap/mprotect.
const (
	ProtRead  = 1
	ProtWrite = 2
	ProtExec  = 4
)

// MAP_* flag bits (only the ones this emulator distinguishes).
const (
	MapAnonymous = 0x20
)

// MADV_* advice values.
const (
	MadvNormal     = 0
	MadvRandom     = 1
	MadvSequential = 2
	MadvWillNeed   = 3
	MadvDontNeed   = 4
	MadvFree       = 8
	MadvRemove     = 9
)

// RiscvSyscallsMax bounds the installable syscall table; the last slot is
// reserved for EBREAK.
const RiscvSyscallsMax = 512

// EbreakSyscallSlot is the reserved syscall-table index for EBREAK.
const EbreakSyscallSlot = RiscvSyscallsMax - 1

// ENOSYS is returned in a0 for any syscall number without an installed handler.
const ENOSYS = 38
