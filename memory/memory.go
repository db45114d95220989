package memory

import (
	"encoding/binary"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/example/riscv-core/except"
)

// Memory is a paged virtual address space: a sparse map from 4 KiB page
// number to Page, plus the bookkeeping (image bounds, stack, mmap
// cursor, optional arena) a running guest needs around it. The page-cache
// shape is a two-entry most-recently-used lookaside cache; on top of that
// it adds attribute checks, CoW sharing, and an alignment policy suited
// to a natively executing interpreter rather than a witness-generating one.
type Memory struct {
	pages map[uint64]*Page

	// ForceAlign, when set, requires every typed access to satisfy
	// addr % sizeof(T) == 0. When clear, unaligned
	// accesses are serviced by splitting across the page boundary.
	ForceAlign bool

	ImageStart uint64
	StackTop   uint64
	StackBot   uint64

	MMapStart   uint64
	MMapAddress uint64
	MemoryMax   uint64

	Arena *Arena

	// PageFaultHandler, if set, is consulted before raising
	// ExecutionSpaceProtectionFault on a fetch from an unmapped page,
	// per It may install a page and return true to let
	// execution resume transparently.
	PageFaultHandler func(m *Memory, addr uint64) bool

	// two-entry cache, same shape as the reference design's
	// lastPageKeys/lastPage pair: a hit moves into slot 0 and the old
	// slot 0 moves to slot 1, so a loop alternating between a fetch page
	// and a data page rarely misses.
	cacheKey [2]uint64
	cachePg  [2]*Page
}

// NewMemory constructs an empty address space with the given mmap window.
func NewMemory(mmapStart, memoryMax uint64) *Memory {
	return &Memory{
		pages:       make(map[uint64]*Page),
		MMapStart:   mmapStart,
		MMapAddress: mmapStart,
		MemoryMax:   memoryMax,
		cacheKey:    [2]uint64{^uint64(0), ^uint64(0)},
	}
}

func (m *Memory) PageCount() int { return len(m.pages) }

// invalidateCache drops any cached reference to pageIndex; required
// whenever attributes change or a page is replaced (fork CoW, mprotect).
func (m *Memory) invalidateCache(pageIndex uint64) {
	if m.cacheKey[0] == pageIndex {
		m.cacheKey[0] = ^uint64(0)
		m.cachePg[0] = nil
	}
	if m.cacheKey[1] == pageIndex {
		m.cacheKey[1] = ^uint64(0)
		m.cachePg[1] = nil
	}
}

func (m *Memory) lookup(pageIndex uint64) (*Page, bool) {
	if pageIndex == m.cacheKey[0] {
		return m.cachePg[0], true
	}
	if pageIndex == m.cacheKey[1] {
		return m.cachePg[1], true
	}
	p, ok := m.pages[pageIndex]
	if ok {
		m.cacheKey[1], m.cachePg[1] = m.cacheKey[0], m.cachePg[0]
		m.cacheKey[0], m.cachePg[0] = pageIndex, p
	}
	return p, ok
}

// AllocPage installs a freshly owned page at pageIndex, replacing
// whatever was there (used for lazy writes to unmapped pages).
func (m *Memory) AllocPage(pageIndex uint64, attr Attr) *Page {
	p := NewPage(attr)
	m.pages[pageIndex] = p
	m.invalidateCache(pageIndex)
	return p
}

// pageForWrite returns the private, writable backing page for pageIndex,
// allocating it (zero-page policy) or copy-on-write-splitting it as needed.
func (m *Memory) pageForWrite(pageIndex uint64, attr Attr) (*Page, error) {
	p, ok := m.lookup(pageIndex)
	if !ok {
		return m.AllocPage(pageIndex, attr), nil
	}
	if !p.Attr.Write {
		return nil, except.New(except.ProtectionFault, pageIndex<<PageAddrBits)
	}
	if p.Attr.Exec {
		// invariant: exec=true pages are immutable for the
		// lifetime of any execute segment referencing them. A write
		// here means the guest mprotect'd it away from RX first.
		return nil, except.New(except.ProtectionFault, pageIndex<<PageAddrBits)
	}
	if p.shared() {
		np := p.clone()
		p.release()
		m.pages[pageIndex] = np
		m.invalidateCache(pageIndex)
		return np, nil
	}
	return p, nil
}

// pageForRead returns the backing page for reads, defaulting to the
// shared all-zero page for unmapped addresses (zero-page
// policy: reads never allocate).
func (m *Memory) pageForRead(pageIndex uint64) *Page {
	if p, ok := m.lookup(pageIndex); ok {
		return p
	}
	return cowZero
}

func sizeOK(size uint64) bool {
	switch size {
	case 1, 2, 4, 8, 16:
		return true
	default:
		return false
	}
}

func (m *Memory) checkAlign(addr, size uint64) error {
	if m.ForceAlign && addr%size != 0 {
		return except.New(except.InvalidAlignment, addr).WithData(size)
	}
	return nil
}

// Load reads a little-endian value of the given byte size, honoring the
// alignment policy and splitting the access across a page boundary when
// unaligned reads are permitted.
func (m *Memory) Load(addr, size uint64) (uint64, error) {
	if !sizeOK(size) {
		return 0, except.New(except.InvalidProgram, addr)
	}
	if err := m.checkAlign(addr, size); err != nil {
		return 0, err
	}
	var buf [16]byte
	m.readInto(addr, buf[:size])
	switch size {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf[:2])), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf[:4])), nil
	case 8:
		return binary.LittleEndian.Uint64(buf[:8]), nil
	default:
		return binary.LittleEndian.Uint64(buf[:8]), nil // low 64 bits of a 128-bit access
	}
}

// Store writes a little-endian value of the given byte size.
func (m *Memory) Store(addr, size, value uint64) error {
	if !sizeOK(size) {
		return except.New(except.InvalidProgram, addr)
	}
	if err := m.checkAlign(addr, size); err != nil {
		return err
	}
	var buf [16]byte
	switch size {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf[:2], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf[:4], uint32(value))
	default:
		binary.LittleEndian.PutUint64(buf[:8], value)
	}
	return m.writeFrom(addr, buf[:size])
}

// readInto copies len(dst) bytes starting at addr, splitting across page
// boundaries and defaulting unmapped pages to zero.
func (m *Memory) readInto(addr uint64, dst []byte) {
	for len(dst) > 0 {
		pageIndex := PageNumber(addr)
		off := PageOffset(addr)
		p := m.pageForRead(pageIndex)
		n := copy(dst, p.Data[off:])
		dst = dst[n:]
		addr += uint64(n)
	}
}

// writeFrom copies src into memory starting at addr, splitting across
// page boundaries, allocating/CoW-splitting pages as needed, and
// enforcing the write attribute bit.
func (m *Memory) writeFrom(addr uint64, src []byte) error {
	for len(src) > 0 {
		pageIndex := PageNumber(addr)
		off := PageOffset(addr)
		p, err := m.pageForWrite(pageIndex, RWAttr)
		if err != nil {
			return err
		}
		n := copy(p.Data[off:], src)
		src = src[n:]
		addr += uint64(n)
	}
	return nil
}

// Memset fills count bytes starting at addr with value.
func (m *Memory) Memset(addr uint64, value byte, count uint64) error {
	for count > 0 {
		pageIndex := PageNumber(addr)
		off := PageOffset(addr)
		p, err := m.pageForWrite(pageIndex, RWAttr)
		if err != nil {
			return err
		}
		n := uint64(PageSize) - off
		if n > count {
			n = count
		}
		row := p.Data[off : off+n]
		for i := range row {
			row[i] = value
		}
		addr += n
		count -= n
	}
	return nil
}

// Memcpy copies count bytes from src to dst within this address space.
func (m *Memory) Memcpy(dst, src, count uint64) error {
	buf := make([]byte, count)
	m.readInto(src, buf)
	return m.writeFrom(dst, buf)
}

// FetchInstructionBytes reads raw instruction bytes for execution,
// enforcing the exec attribute bit and honoring the page-fault handler
// hook before raising ExecutionSpaceProtectionFault.
func (m *Memory) FetchInstructionBytes(addr uint64, n int) ([]byte, error) {
	pageIndex := PageNumber(addr)
	p, ok := m.lookup(pageIndex)
	if !ok {
		if m.PageFaultHandler != nil && m.PageFaultHandler(m, addr) {
			p, ok = m.lookup(pageIndex)
		}
		if !ok {
			return nil, except.New(except.ExecutionSpaceProtectionFault, addr)
		}
	}
	if !p.Attr.Exec {
		return nil, except.New(except.ExecutionSpaceProtectionFault, addr)
	}
	off := PageOffset(addr)
	if int(off)+n > PageSize {
		out := make([]byte, n)
		copy(out, p.Data[off:])
		rest, err := m.FetchInstructionBytes(addr+uint64(PageSize)-off, n-(PageSize-int(off)))
		if err != nil {
			return nil, err
		}
		copy(out[PageSize-int(off):], rest)
		return out, nil
	}
	return p.Data[off : off+uint64(n)], nil
}

// SetAttr applies prot bits to every page in [addr, addr+len), matching
// mprotect semantics. Pages not yet mapped are allocated
// so the attribute sticks even before first touch.
func (m *Memory) SetAttr(addr, length uint64, attr Attr) {
	start := PageNumber(addr)
	end := PageNumber(addr + length - 1)
	for pi := start; pi <= end; pi++ {
		p, ok := m.lookup(pi)
		if !ok {
			p = m.AllocPage(pi, attr)
			continue
		}
		if p.shared() {
			np := p.clone()
			p.release()
			p = np
			m.pages[pi] = p
		}
		p.Attr = attr
		m.invalidateCache(pi)
	}
}

// FreePages drops every page that overlaps [addr, addr+length),
// including pages only partly covered at either end.
func (m *Memory) FreePages(addr, length uint64) {
	start := PageNumber(addr)
	end := PageNumber(addr + length - 1)
	for pi := start; pi <= end; pi++ {
		if p, ok := m.pages[pi]; ok {
			p.release()
			delete(m.pages, pi)
			m.invalidateCache(pi)
		}
	}
}

// WriteBytes copies data into the guest address space starting at addr,
// allocating or copy-on-write-splitting pages as writeFrom requires. It
// is the exported counterpart used by loaders that stage a program image
// before the pages carrying it are locked down to read-only/exec.
func (m *Memory) WriteBytes(addr uint64, data []byte) error {
	return m.writeFrom(addr, data)
}

// Bytes returns a snapshot copy of length bytes starting at addr,
// defaulting unmapped pages to zero. Used to hand an execute segment its
// backing bytes at build time.
func (m *Memory) Bytes(addr, length uint64) []byte {
	buf := make([]byte, length)
	m.readInto(addr, buf)
	return buf
}

// ExecRange returns the widest page-aligned, contiguously mapped
// executable range containing addr, for resolving which bytes an
// execute segment should be built over. ok is false if addr's page
// isn't mapped and executable at all.
func (m *Memory) ExecRange(addr uint64) (begin, end uint64, ok bool) {
	pi := PageNumber(addr)
	p, exists := m.lookup(pi)
	if !exists || !p.Attr.Exec {
		return 0, 0, false
	}
	start, stop := pi, pi
	for start > 0 {
		pp, exists := m.lookup(start - 1)
		if !exists || !pp.Attr.Exec {
			break
		}
		start--
	}
	for {
		pp, exists := m.lookup(stop + 1)
		if !exists || !pp.Attr.Exec {
			break
		}
		stop++
	}
	return start << PageAddrBits, (stop + 1) << PageAddrBits, true
}

// Fork produces a child Memory sharing every page with m by refcount,
// per copy-on-write fork. When minimal is true, no pages
// are shared: the child starts with an empty page table and must fault
// pages in itself.
func (m *Memory) Fork(minimal bool) *Memory {
	child := NewMemory(m.MMapStart, m.MemoryMax)
	child.ForceAlign = m.ForceAlign
	child.ImageStart = m.ImageStart
	child.StackTop = m.StackTop
	child.StackBot = m.StackBot
	child.MMapAddress = m.MMapAddress
	child.PageFaultHandler = m.PageFaultHandler
	if m.Arena != nil {
		child.Arena = m.Arena.Clone()
	}
	if minimal {
		return child
	}
	for pi, p := range m.pages {
		p.markShared()
		child.pages[pi] = p
	}
	return child
}

// Digest hashes every mapped page's index and contents with Keccak256,
// in ascending page-index order so two Memory instances holding
// identical contents always agree regardless of map iteration order.
// This is a debug/inspection aid for snapshot output, not part of any
// on-chain proof format: it exists only to catch accidental divergence
// between a parent and a forked child during testing.
func (m *Memory) Digest() [32]byte {
	indices := make([]uint64, 0, len(m.pages))
	for pi := range m.pages {
		indices = append(indices, pi)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	chunks := make([][]byte, 0, 2*len(indices))
	for _, pi := range indices {
		idxBuf := make([]byte, 8)
		binary.LittleEndian.PutUint64(idxBuf, pi)
		chunks = append(chunks, idxBuf, m.pages[pi].Data[:])
	}
	return [32]byte(crypto.Keccak256(chunks...))
}
