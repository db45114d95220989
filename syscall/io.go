package syscall

import (
	"io"

	"github.com/example/riscv-core/internal/rvabi"
)

const (
	ebadf = 9
	eio   = 5
)

// installIO wires read/write against the table's Stdout/Stderr writers
// (write serves fd 1 and 2 only; any other fd, or an unset writer, fails
// EBADF; read returns 0 for every fd), extending the mman
// family's install-time wiring pattern to the minimum I/O surface a
// runnable guest binary needs to produce observable output.
func installIO(t *Table) {
	t.Install(rvabi.SysWrite, func(ctx Context) {
		fd := ctx.Arg(0)
		addr := ctx.Arg(1)
		count := ctx.Arg(2)
		w := t.writerFor(fd)
		if w == nil {
			ctx.SetResult(negErrno(ebadf))
			return
		}
		buf := ctx.Mem().Bytes(addr, count)
		n, err := w.Write(buf)
		if err != nil {
			ctx.SetResult(negErrno(eio))
			return
		}
		ctx.SetResult(uint64(n))
	})

	t.Install(rvabi.SysRead, func(ctx Context) {
		// No stdin source is wired up; every read behaves as EOF.
		ctx.SetResult(0)
	})
}

func (t *Table) writerFor(fd uint64) io.Writer {
	switch fd {
	case 1:
		return t.Stdout
	case 2:
		return t.Stderr
	default:
		return nil
	}
}
