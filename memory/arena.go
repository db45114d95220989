package memory

// Arena is a separate-address-space allocator handing out guest pointers
// (uint32 offsets in [Base, End)) for the guest's malloc/realloc/free.
// It is a doubly-linked list of chunks with first-fit search, ported from
// its native_heap.hpp (Arena/ArenaChunk) into idiomatic Go:
// pointer-linked chunks instead of a deque of value chunks, since Go's
// garbage collector makes chunk lifetime bookkeeping unnecessary.
type Arena struct {
	base uint32
	end  uint32
	head *arenaChunk

	// onUnknownFree is consulted when Free is called on an address that
	// doesn't match any live chunk.
	onUnknownFree func(ptr uint32)
}

const (
	arenaAlignment = 8
)

type arenaChunk struct {
	next, prev *arenaChunk
	size       uint32
	free       bool
	data       uint32
}

// NewArena creates an allocator spanning [base, end) as a single free chunk.
func NewArena(base, end uint32) *Arena {
	return &Arena{
		base: base,
		end:  end,
		head: &arenaChunk{size: end - base, free: true, data: base},
	}
}

// OnUnknownFree installs a callback invoked when Free targets an address
// with no matching live chunk.
func (a *Arena) OnUnknownFree(fn func(ptr uint32)) { a.onUnknownFree = fn }

// Clone deep-copies the chunk chain into a fresh Arena that shares no
// pointers with a. head is a mutable doubly-linked list, so a shallow
// struct copy would leave both arenas splitting and coalescing the same
// chunk nodes; every chunk is rebuilt here and relinked on its own.
func (a *Arena) Clone() *Arena {
	c := &Arena{base: a.base, end: a.end, onUnknownFree: a.onUnknownFree}
	var prev *arenaChunk
	for ch := a.head; ch != nil; ch = ch.next {
		nc := &arenaChunk{size: ch.size, free: ch.free, data: ch.data, prev: prev}
		if prev != nil {
			prev.next = nc
		} else {
			c.head = nc
		}
		prev = nc
	}
	return c
}

func alignUp8(n uint32) uint32 {
	return (n + (arenaAlignment - 1)) &^ (arenaAlignment - 1)
}

func fixupSize(n uint32) uint32 {
	s := alignUp8(n)
	if s < arenaAlignment {
		return arenaAlignment
	}
	return s
}

func (a *Arena) findFree(size uint32) *arenaChunk {
	for ch := a.head; ch != nil; ch = ch.next {
		if ch.free && ch.size >= size {
			return ch
		}
	}
	return nil
}

func (a *Arena) findByData(ptr uint32) *arenaChunk {
	for ch := a.head; ch != nil; ch = ch.next {
		if !ch.free && ch.data == ptr {
			return ch
		}
	}
	return nil
}

// splitNext carves size bytes off the front of ch, inserting a new free
// chunk for the remainder immediately after it.
func (a *Arena) splitNext(ch *arenaChunk, size uint32) {
	if ch.size == size {
		return
	}
	rest := &arenaChunk{
		next: ch.next,
		prev: ch,
		size: ch.size - size,
		free: true,
		data: ch.data + size,
	}
	if ch.next != nil {
		ch.next.prev = rest
	}
	ch.next = rest
	ch.size = size
}

func (a *Arena) mergeNext(ch *arenaChunk) {
	next := ch.next
	ch.size += next.size
	ch.next = next.next
	if ch.next != nil {
		ch.next.prev = ch
	}
}

func (a *Arena) internalFree(ch *arenaChunk) {
	ch.free = true
	if ch.next != nil && ch.next.free {
		a.mergeNext(ch)
	}
	if ch.prev != nil && ch.prev.free {
		a.mergeNext(ch.prev)
	}
}

// Malloc returns a chunk of at least n bytes, or 0 if the arena is
// exhausted.
func (a *Arena) Malloc(n uint32) uint32 {
	size := fixupSize(n)
	ch := a.findFree(size)
	if ch == nil {
		return 0
	}
	a.splitNext(ch, size)
	ch.free = false
	return ch.data
}

// Free marks the chunk backing ptr as free and coalesces with free
// neighbors. If ptr does not match a live chunk, the unknown-free
// callback runs instead.
func (a *Arena) Free(ptr uint32) {
	ch := a.findByData(ptr)
	if ch == nil {
		if a.onUnknownFree != nil {
			a.onUnknownFree(ptr)
		}
		return
	}
	a.internalFree(ch)
}

// Realloc grows or relocates the chunk backing ptr to at least n bytes,
// returning the (possibly new) pointer and the chunk's old length so the
// caller can copy the live bytes forward.
func (a *Arena) Realloc(ptr uint32, n uint32) (newPtr uint32, oldLen uint32) {
	if ptr == 0 {
		return a.Malloc(n), 0
	}
	ch := a.findByData(ptr)
	if ch == nil {
		return 0, 0
	}
	size := fixupSize(n)
	if ch.size >= size {
		return ch.data, ch.size
	}
	oldLen = ch.size
	if ch.next != nil && ch.next.free && ch.size+ch.next.size >= size {
		subsume := size - ch.size
		ch.next.size -= subsume
		ch.next.data += subsume
		ch.size = size
		if ch.next.size == 0 {
			a.mergeNext(ch) // eats the now-empty next chunk
		}
		return ch.data, oldLen
	}
	np := a.Malloc(n)
	if np == 0 {
		return 0, 0
	}
	a.internalFree(ch)
	return np, oldLen
}

// Size reports the usable size of the chunk backing ptr, or 0 if unknown.
func (a *Arena) Size(ptr uint32) uint32 {
	ch := a.findByData(ptr)
	if ch == nil {
		return 0
	}
	return ch.size
}

// BytesFree sums the size of every free chunk.
func (a *Arena) BytesFree() uint32 {
	var total uint32
	for ch := a.head; ch != nil; ch = ch.next {
		if ch.free {
			total += ch.size
		}
	}
	return total
}

// BytesUsed sums the size of every allocated chunk.
func (a *Arena) BytesUsed() uint32 {
	var total uint32
	for ch := a.head; ch != nil; ch = ch.next {
		if !ch.free {
			total += ch.size
		}
	}
	return total
}

// SeqAllocAligned allocates size bytes guaranteed not to straddle a
// PageSize boundary, for code paths that map sequential host memory into
// the guest. Alignment beyond the 8-byte guarantee every
// chunk already has is not currently implemented, matching the
// reference original (native_heap.hpp: "alignment is ignored
// for now").
func (a *Arena) SeqAllocAligned(size uint32, _ uint32) uint32 {
	objectSize := fixupSize(size)
	oversized := fixupSize(size * 2)
	ch := a.findFree(oversized)
	if ch == nil {
		return 0
	}
	pageOf := func(addr uint32) uint32 { return addr &^ (PageSize - 1) }
	if pageOf(ch.data) == pageOf(ch.data+size) {
		a.splitNext(ch, objectSize)
		ch.free = false
		return ch.data
	}
	boundary := pageOf(ch.data + size)
	a.splitNext(ch, boundary-ch.data)
	final := ch.next
	final.free = false
	a.internalFree(ch)
	a.splitNext(final, objectSize)
	return final.data
}
