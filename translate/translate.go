// Package translate defines the plug-in contract a binary translator
// implements to take over execution of an address range from the
// bytecode interpreter. No translator ships here: this is the seam a
// future JIT or ahead-of-time compiled backend attaches to, mirroring
// the callback surface a native codegen backend needs from its host VM
// (memory access, syscalls, and control transfer) without depending on
// the interpreter's internal types.
package translate

import "github.com/example/riscv-core/except"

// Handler is what a translated code region registers in place of the
// bytecode interpreter loop. ExecuteOne is called once per Translator
// bytecode slot the dispatcher encounters; it returns the guest PC to
// resume interpretation at (translated code always hands control back
// at a block boundary) or an *except.Exception on trap.
type Handler interface {
	// ExecuteOne runs translated code starting at pc against host,
	// returning the next guest PC once the translated region yields
	// control back to the interpreter.
	ExecuteOne(host Host, pc uint64) (nextPC uint64, err error)
}

// Host is the narrow interface a Handler needs back from the machine it
// is embedded in: memory access, syscall dispatch, and the primitives a
// compiled instruction stream cannot express as plain Go, such as
// exact-width sqrt.
type Host interface {
	Load(addr uint64, size uint64) (uint64, error)
	Store(addr uint64, size uint64, value uint64) error

	Syscall() error
	TriggerException(kind except.Kind, addr uint64) error

	SqrtF32(v float32) float32
	SqrtF64(v float64) float64
}

// Registry maps the sequential ids Register hands out to Handlers; it
// is keyed by id, not by guest address. A Segment carrying a Translator
// bytecode slot stores the TranslatorID that indexes into this table
// rather than embedding the Handler directly, keeping segment/decode
// free of a dependency on this package. Nothing in this tree sets an
// entry's bytecode to Translator.
type Registry struct {
	handlers map[int32]Handler
	next     int32
}

// NewRegistry returns an empty translator registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[int32]Handler)}
}

// Register installs h and returns the id a Segment entry should carry.
func (r *Registry) Register(h Handler) int32 {
	id := r.next
	r.next++
	r.handlers[id] = h
	return id
}

// Lookup returns the Handler registered under id, or nil if none.
func (r *Registry) Lookup(id int32) Handler {
	return r.handlers[id]
}
