// Package syscall implements the guest system-call surface: a sparse,
// installable table keyed by RISC-V/Linux syscall number, plus the
// mmap-family handlers the memory model needs to be useful to a real
// guest binary. It is grounded on the reference implementation's
// install_syscall_handler table (linux.hpp) and its syscalls_mman.cpp,
// translated from a fixed-size function-pointer array into a fixed-size
// Go array of closures.
package syscall

import (
	"io"

	"github.com/example/riscv-core/internal/rvabi"
	"github.com/example/riscv-core/memory"
)

// Context is the narrow view of machine state a syscall handler needs:
// argument registers (a0..a6 per the standard integer calling
// convention), a result slot, and the guest's memory.
type Context interface {
	Arg(i int) uint64
	SetResult(v uint64)
	Mem() *memory.Memory
}

// Handler services one syscall number against ctx.
type Handler func(ctx Context)

// Table is the guest-visible syscall dispatch table. The zero value is
// ready to use; unset slots fall back to ENOSYS.
type Table struct {
	handlers [rvabi.RiscvSyscallsMax]Handler

	// Stdout and Stderr back fd 1 and 2 for the write syscall. Both are
	// nil until a caller sets them; writes to an unset fd fail EBADF.
	Stdout io.Writer
	Stderr io.Writer
}

// NewTable returns an empty table with the mmap family and the minimum
// read/write syscalls pre-installed, mirroring how the reference
// implementation wires add_mman_syscalls into every freshly constructed
// Machine and extending it with the handful of calls a guest needs to
// produce observable output.
func NewTable() *Table {
	t := &Table{}
	installMman(t)
	installIO(t)
	return t
}

// Install registers fn for syscall number num, overwriting any existing
// handler. num must be below the reserved EBREAK slot.
func (t *Table) Install(num int, fn Handler) {
	if num < 0 || num >= rvabi.EbreakSyscallSlot {
		return
	}
	t.handlers[num] = fn
}

// Dispatch runs the handler installed for num, or sets result to
// -ENOSYS if none is installed.
func (t *Table) Dispatch(ctx Context, num int) {
	if num < 0 || num >= len(t.handlers) || t.handlers[num] == nil {
		ctx.SetResult(negErrno(rvabi.ENOSYS))
		return
	}
	t.handlers[num](ctx)
}

// negErrno returns the two's-complement encoding of -errno in a 64-bit
// result register, the Linux syscall-ABI convention for error returns.
func negErrno(errno int) uint64 {
	return uint64(int64(-errno))
}
