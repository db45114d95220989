package syscall

import (
	"github.com/example/riscv-core/internal/rvabi"
	"github.com/example/riscv-core/memory"
)

// installMman wires munmap/mmap/mremap/mprotect/madvise into t, following
// the monotonic-cursor bump allocator semantics of the reference
// implementation's add_mman_syscalls: mmap hands out addresses by
// advancing memory.MMapAddress, and munmap only retracts that cursor
// when the freed range abuts it exactly.
func installMman(t *Table) {
	t.Install(rvabi.SysMunmap, sysMunmap)
	t.Install(rvabi.SysMmap, sysMmap)
	t.Install(rvabi.SysMremap, sysMremap)
	t.Install(rvabi.SysMprotect, sysMprotect)
	t.Install(rvabi.SysMadvise, sysMadvise)
}

const einval = 22

func pageAlign(n uint64) uint64 {
	return (n + memory.PageSize - 1) &^ uint64(memory.PageSize-1)
}

func sysMunmap(ctx Context) {
	addr := ctx.Arg(0)
	length := ctx.Arg(1)
	m := ctx.Mem()
	m.FreePages(addr, length)
	if addr+length == m.MMapAddress {
		m.MMapAddress = addr
		if m.MMapAddress < m.MMapStart {
			m.MMapAddress = m.MMapStart
		}
	}
	ctx.SetResult(0)
}

func sysMmap(ctx Context) {
	addrG := ctx.Arg(0)
	length := ctx.Arg(1)
	_ = ctx.Arg(2) // prot: pages start read/write and are tightened by a later mprotect, as upstream does
	flags := ctx.Arg(3)

	m := ctx.Mem()
	if addrG%memory.PageSize != 0 {
		ctx.SetResult(negErrno(einval))
		return
	}
	length = pageAlign(length)

	switch {
	case addrG == 0 || addrG == m.MMapAddress:
		// Anonymous pages are already zero on first touch via the
		// zero-page read policy, so there is nothing to clear here.
		_ = flags & rvabi.MapAnonymous
		result := m.MMapAddress
		m.MMapAddress += length
		ctx.SetResult(result)
	case addrG < m.MMapAddress:
		// A request below the bump cursor is accepted at face value
		// rather than rejected outright, matching the lenient behavior
		// carried over from the reference allocator.
		ctx.SetResult(addrG)
	default:
		ctx.SetResult(addrG)
	}
}

func sysMremap(ctx Context) {
	oldAddr := ctx.Arg(0)
	oldSize := ctx.Arg(1)
	newSize := ctx.Arg(2)
	m := ctx.Mem()
	// Only the common case of extending the most recent mapping in
	// place is supported; anything else is rejected.
	if oldAddr+oldSize == m.MMapAddress {
		m.MMapAddress = oldAddr + newSize
		ctx.SetResult(oldAddr)
		return
	}
	ctx.SetResult(negErrno(einval))
}

func sysMprotect(ctx Context) {
	addr := ctx.Arg(0)
	length := ctx.Arg(1)
	prot := ctx.Arg(2)
	ctx.Mem().SetAttr(addr, length, memory.Attr{
		Read:  prot&1 != 0,
		Write: prot&2 != 0,
		Exec:  prot&4 != 0,
	})
	ctx.SetResult(0)
}

func sysMadvise(ctx Context) {
	addr := ctx.Arg(0)
	length := ctx.Arg(1)
	advice := ctx.Arg(2)
	switch advice {
	case 0, 1, 2, 3: // NORMAL, RANDOM, SEQUENTIAL, WILLNEED: all no-ops here
		ctx.SetResult(0)
	case 4, 8, 9: // DONTNEED, FREE, REMOVE
		ctx.Mem().FreePages(addr, length)
		ctx.SetResult(0)
	default:
		ctx.SetResult(negErrno(einval))
	}
}
