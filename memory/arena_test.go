package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaMallocAlignsAndSplits(t *testing.T) {
	a := NewArena(0x1000, 0x2000)
	p1 := a.Malloc(10)
	require.Equal(t, uint32(0x1000), p1)
	require.Equal(t, uint32(16), a.Size(p1), "10 bytes rounds up to the 8-byte alignment")

	p2 := a.Malloc(8)
	require.Equal(t, uint32(0x1000+16), p2)
	require.Equal(t, uint32(0x1000-16-8), a.BytesFree())
}

func TestArenaMallocExhausted(t *testing.T) {
	a := NewArena(0x1000, 0x1000+16)
	require.Equal(t, uint32(0x1000), a.Malloc(16))
	require.Zero(t, a.Malloc(1), "no space left for a second chunk")
}

func TestArenaFreeCoalescesNeighbors(t *testing.T) {
	a := NewArena(0, 64)
	p1 := a.Malloc(8)
	p2 := a.Malloc(8)
	p3 := a.Malloc(8)
	a.Free(p1)
	a.Free(p3)
	require.Equal(t, uint32(64-8), a.BytesFree())

	a.Free(p2)
	require.Equal(t, uint32(64), a.BytesFree(), "freeing the middle chunk must merge all three back into one")

	a.Malloc(64)
	require.Zero(t, a.BytesFree(), "the merged chunk must satisfy a single 64-byte allocation")
}

func TestArenaFreeUnknownPointerInvokesCallback(t *testing.T) {
	a := NewArena(0, 64)
	var badPtr uint32
	called := false
	a.OnUnknownFree(func(ptr uint32) {
		called = true
		badPtr = ptr
	})
	a.Free(0xDEAD)
	require.True(t, called)
	require.Equal(t, uint32(0xDEAD), badPtr)
}

func TestArenaReallocGrowsInPlaceIntoFreeNeighbor(t *testing.T) {
	a := NewArena(0x1000, 0x1000+64)
	p1 := a.Malloc(8)
	p2 := a.Malloc(8)
	a.Free(p2)

	grown, oldLen := a.Realloc(p1, 16)
	require.Equal(t, p1, grown, "growing into an adjacent free chunk keeps the same pointer")
	require.Equal(t, uint32(8), oldLen)
	require.Equal(t, uint32(16), a.Size(p1))
}

func TestArenaReallocRelocatesWhenNoRoom(t *testing.T) {
	a := NewArena(0x1000, 0x1000+40)
	p1 := a.Malloc(8)
	p2 := a.Malloc(8)
	_ = p2 // occupies the chunk right after p1 so growth in place is impossible

	moved, oldLen := a.Realloc(p1, 24)
	require.NotZero(t, moved)
	require.NotEqual(t, p1, moved)
	require.Equal(t, uint32(8), oldLen)
	require.Equal(t, uint32(24), a.Size(moved))
}

func TestArenaReallocFromNilActsAsMalloc(t *testing.T) {
	a := NewArena(0x1000, 0x2000)
	ptr, oldLen := a.Realloc(0, 16)
	require.Equal(t, uint32(0x1000), ptr)
	require.Zero(t, oldLen)
}

func TestArenaCloneIsIndependentOfSource(t *testing.T) {
	a := NewArena(0, 64)
	p1 := a.Malloc(8)
	a.Malloc(8)

	clone := a.Clone()
	clone.Free(p1)
	require.Equal(t, uint32(64-16), a.BytesFree(), "freeing through the clone must not touch the source's chunks")
	require.Equal(t, uint32(64-8), clone.BytesFree())

	require.NotZero(t, clone.Malloc(64-16), "the clone's newly-freed chunk must be usable on its own chain")
}
