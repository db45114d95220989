package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreLoadRoundTrip(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, m.Store(0x1000, 8, 0xDEADBEEFCAFEBABE))
	v, err := m.Load(0x1000, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(0xDEADBEEFCAFEBABE), v)
}

func TestLoadFromUnmappedAddressReadsZero(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	v, err := m.Load(0x9999_0000, 4)
	require.NoError(t, err)
	require.Zero(t, v)
	require.Equal(t, 0, m.PageCount(), "reads must never allocate a page")
}

func TestStoreSplitsAcrossPageBoundary(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	addr := uint64(PageSize - 2)
	require.NoError(t, m.Store(addr, 4, 0x11223344))
	v, err := m.Load(addr, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(0x11223344), v)
	require.Equal(t, 2, m.PageCount())
}

func TestForceAlignRejectsMisalignedAccess(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	m.ForceAlign = true
	_, err := m.Load(0x1001, 4)
	require.Error(t, err)
}

func TestWriteToReadOnlyPageFaults(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	m.SetAttr(0x2000, PageSize, Attr{Read: true})
	err := m.Store(0x2000, 8, 1)
	require.Error(t, err)
}

func TestWriteToExecPageFaults(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	m.SetAttr(0x3000, PageSize, RXAttr)
	err := m.Store(0x3000, 4, 1)
	require.Error(t, err)
}

func TestFetchInstructionBytesRequiresExecAttr(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, m.WriteBytes(0x4000, []byte{1, 2, 3, 4}))
	_, err := m.FetchInstructionBytes(0x4000, 4)
	require.Error(t, err, "a plain RW page must not be fetchable")
}

func TestFetchInstructionBytesSpansPages(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	data := make([]byte, 8)
	for i := range data {
		data[i] = byte(i + 1)
	}
	addr := uint64(PageSize - 4)
	require.NoError(t, m.WriteBytes(addr, data))
	// flip the two pages the write touched from RW to RX, the way an ELF
	// loader locks down a text segment after staging its bytes.
	m.SetAttr(addr&^uint64(PageAddrMask), 2*PageSize, RXAttr)

	out, err := m.FetchInstructionBytes(addr, 8)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestForkSharesPagesUntilWrite(t *testing.T) {
	parent := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, parent.Store(0x5000, 8, 42))

	child := parent.Fork(false)
	v, err := child.Load(0x5000, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)

	require.NoError(t, child.Store(0x5000, 8, 99))

	parentV, _ := parent.Load(0x5000, 8)
	childV, _ := child.Load(0x5000, 8)
	require.Equal(t, uint64(42), parentV, "parent must be unaffected by child's CoW write")
	require.Equal(t, uint64(99), childV)
}

func TestForkMinimalStartsEmpty(t *testing.T) {
	parent := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, parent.Store(0x6000, 8, 7))

	child := parent.Fork(true)
	require.Equal(t, 0, child.PageCount())
	v, err := child.Load(0x6000, 8)
	require.NoError(t, err)
	require.Zero(t, v)
}

func TestForkClonesArenaWithoutAliasingChunks(t *testing.T) {
	parent := NewMemory(0x1000_0000, 0x2000_0000)
	parent.Arena = NewArena(0x2000_0000, 0x2000_0000+64)
	p1 := parent.Arena.Malloc(8)
	parent.Arena.Malloc(8)

	child := parent.Fork(false)
	child.Arena.Free(p1)
	require.Equal(t, uint32(64-16), parent.Arena.BytesFree(), "the parent's arena must be unaffected by the child freeing a chunk")
	require.Equal(t, uint32(64-8), child.Arena.BytesFree())
}

func TestFreePagesRemovesMappings(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, m.Store(0x7000, 8, 1))
	require.Equal(t, 1, m.PageCount())
	m.FreePages(0x7000, PageSize)
	require.Equal(t, 0, m.PageCount())
}

func TestExecRangeMergesAdjacentPages(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	m.SetAttr(0x10000, 3*PageSize, RXAttr)
	begin, end, ok := m.ExecRange(0x10000 + PageSize)
	require.True(t, ok)
	require.Equal(t, uint64(0x10000), begin)
	require.Equal(t, uint64(0x10000+3*PageSize), end)
}

func TestExecRangeFalseOnDataPage(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, m.Store(0x11000, 8, 1))
	_, _, ok := m.ExecRange(0x11000)
	require.False(t, ok)
}

func TestDigestMatchesForIdenticalContentDifferentInstances(t *testing.T) {
	a := NewMemory(0x1000_0000, 0x2000_0000)
	b := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, a.Store(0x9000, 8, 0xABCD))
	require.NoError(t, b.Store(0x9000, 8, 0xABCD))
	require.Equal(t, a.Digest(), b.Digest())
}

func TestDigestChangesAfterForkedChildWrites(t *testing.T) {
	parent := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, parent.Store(0x9000, 8, 1))
	before := parent.Digest()

	child := parent.Fork(false)
	require.NoError(t, child.Store(0x9000, 8, 2))

	require.Equal(t, before, parent.Digest(), "writes through the child must not disturb the parent's digest")
	require.NotEqual(t, before, child.Digest())
}

func TestBytesDefaultsUnmappedToZero(t *testing.T) {
	m := NewMemory(0x1000_0000, 0x2000_0000)
	require.NoError(t, m.WriteBytes(0x100, []byte{1, 2, 3}))
	got := m.Bytes(0x100, 6)
	require.Equal(t, []byte{1, 2, 3, 0, 0, 0}, got)
}
