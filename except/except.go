// Package except defines the closed CPU exception taxonomy that handlers
// and the dispatcher raise. An Exception is a plain error value, not a
// panic: handlers return it, and the dispatch loops and Machine.Run pass
// it back to the caller unchanged. No recover() is installed anywhere.
package except

import "fmt"

// Kind enumerates the closed exception taxonomy.
type Kind int

const (
	IllegalOpcode Kind = iota
	IllegalOperation
	ProtectionFault
	ExecutionSpaceProtectionFault
	MisalignedInstruction
	InvalidAlignment
	UnimplementedInstruction
	MaxInstructionsReached
	InvalidProgram
)

func (k Kind) String() string {
	switch k {
	case IllegalOpcode:
		return "IllegalOpcode"
	case IllegalOperation:
		return "IllegalOperation"
	case ProtectionFault:
		return "ProtectionFault"
	case ExecutionSpaceProtectionFault:
		return "ExecutionSpaceProtectionFault"
	case MisalignedInstruction:
		return "MisalignedInstruction"
	case InvalidAlignment:
		return "InvalidAlignment"
	case UnimplementedInstruction:
		return "UnimplementedInstruction"
	case MaxInstructionsReached:
		return "MaxInstructionsReached"
	case InvalidProgram:
		return "InvalidProgram"
	default:
		return "Unknown"
	}
}

// Exception is the concrete error type raised by handlers, the decoder,
// and the memory subsystem. Data carries the faulting address, encoding,
// or CSR number where applicable; it is zero when not.
type Exception struct {
	Kind Kind
	Addr uint64
	Data uint64
	Msg  string
}

func (e *Exception) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s at 0x%x: %s", e.Kind, e.Addr, e.Msg)
	}
	return fmt.Sprintf("%s at 0x%x (data=0x%x)", e.Kind, e.Addr, e.Data)
}

// New builds an Exception with the given kind and faulting address.
func New(kind Kind, addr uint64) *Exception {
	return &Exception{Kind: kind, Addr: addr}
}

// WithData attaches an auxiliary data word (e.g. an unaligned jump target).
func (e *Exception) WithData(data uint64) *Exception {
	e.Data = data
	return e
}

// WithMessage attaches a human-readable detail, e.g. the unrecognized
// syscall number or CSR id.
func (e *Exception) WithMessage(msg string) *Exception {
	e.Msg = msg
	return e
}

// IsOverflow reports whether an error is the non-fatal MaxInstructionsReached
// signal, which treats as a normal return path, not an error to
// propagate as a fault.
func IsOverflow(err error) bool {
	ex, ok := err.(*Exception)
	return ok && ex.Kind == MaxInstructionsReached
}
