package syscall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/riscv-core/memory"
)

type fakeCtx struct {
	args   [6]uint64
	result uint64
	mem    *memory.Memory
}

func (c *fakeCtx) Arg(i int) uint64    { return c.args[i] }
func (c *fakeCtx) SetResult(v uint64)  { c.result = v }
func (c *fakeCtx) Mem() *memory.Memory { return c.mem }

func newFakeCtx() *fakeCtx {
	return &fakeCtx{mem: memory.NewMemory(0x10000, 0x100000)}
}

func TestMmapBumpsCursor(t *testing.T) {
	ctx := newFakeCtx()
	tbl := NewTable()

	ctx.args[0] = 0
	ctx.args[1] = 100 // rounds up to one page
	tbl.Dispatch(ctx, 222)
	require.Equal(t, uint64(0x10000), ctx.result)
	require.Equal(t, uint64(0x10000+memory.PageSize), ctx.mem.MMapAddress)
}

func TestMunmapRetractsCursorOnlyAtBoundary(t *testing.T) {
	ctx := newFakeCtx()
	tbl := NewTable()
	ctx.mem.MMapAddress = 0x10000 + 2*memory.PageSize

	ctx.args[0] = 0x10000 + memory.PageSize
	ctx.args[1] = memory.PageSize
	tbl.Dispatch(ctx, 215)
	require.Equal(t, uint64(0x10000+memory.PageSize), ctx.mem.MMapAddress)

	// A non-adjacent free must not move the cursor.
	ctx.mem.MMapAddress = 0x10000 + 4*memory.PageSize
	ctx.args[0] = 0x10000
	ctx.args[1] = memory.PageSize
	tbl.Dispatch(ctx, 215)
	require.Equal(t, uint64(0x10000+4*memory.PageSize), ctx.mem.MMapAddress)
}

func TestMprotectSetsAttr(t *testing.T) {
	ctx := newFakeCtx()
	tbl := NewTable()
	ctx.args[0] = 0x10000
	ctx.args[1] = memory.PageSize
	ctx.args[2] = 0x1 // PROT_READ only
	tbl.Dispatch(ctx, 226)
	require.Equal(t, uint64(0), ctx.result)
	require.Error(t, ctx.mem.Store(0x10000, 4, 1), "PROT_READ alone must leave the page unwritable")
}

func TestUnknownSyscallReturnsENOSYS(t *testing.T) {
	ctx := newFakeCtx()
	tbl := NewTable()
	tbl.Dispatch(ctx, 999)
	require.Equal(t, negErrno(38), ctx.result)
}
