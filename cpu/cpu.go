// Package cpu holds the architectural state a Machine steps: the integer
// register file, program counter, instruction counter, and the small
// amount of CSR and atomics bookkeeping the base ISA plus the M/A
// extensions require. It plays the role the flat Registers array and PC
// field play on the reference VM state, split into its own type so
// dispatch and machine can share it without pulling in the memory model.
package cpu

import "github.com/example/riscv-core/riscv"

// CPU is the register file and program counter for one hart. Reg[0] is
// wired to zero: SetReg is a no-op when rd is zero, mirroring the ISA's
// hardwired-zero register rather than special-casing every write site.
type CPU struct {
	Reg [32]uint64
	PC  uint64

	// Counter is the executed-instruction count. The dispatch loops
	// advance it once per executed instruction; it is not batched per block.
	Counter uint64

	// Reservation tracks the single outstanding LR/SC reservation: the
	// reserved address and whether it is currently valid. A hart has at
	// most one live reservation at a time, matching the base A extension.
	ReservationValid bool
	ReservationAddr  uint64

	// CSR holds the handful of read/write control and status registers
	// this core models; counters (cycle/time/instret) are synthesized
	// from Counter instead of stored here.
	CSR map[uint32]uint64

	XLen riscv.XLen
}

// New returns a zeroed CPU configured for the given register width.
func New(xlen riscv.XLen) *CPU {
	return &CPU{CSR: make(map[uint32]uint64), XLen: xlen}
}

// GetReg reads register r, returning 0 for r==0 without touching Reg.
func (c *CPU) GetReg(r uint8) uint64 {
	if r == riscv.RegZero {
		return 0
	}
	return c.Reg[r]
}

// SetReg writes register r, silently discarding writes to x0.
func (c *CPU) SetReg(r uint8, v uint64) {
	if r == riscv.RegZero {
		return
	}
	if c.XLen == riscv.XLen32 {
		v = uint64(uint32(v))
	}
	c.Reg[r] = v
}

// ReadCSR services the handful of read-only performance counters
// directly from Counter/PC bookkeeping and otherwise looks up CSR.
func (c *CPU) ReadCSR(addr uint32) uint64 {
	switch addr {
	case riscv.CSRCycle, riscv.CSRInstret, riscv.CSRTime:
		return c.Counter
	case riscv.CSRMHartID:
		return 0
	default:
		return c.CSR[addr]
	}
}

// WriteCSR stores to a general CSR slot; the read-only performance
// counters above silently ignore writes.
func (c *CPU) WriteCSR(addr uint32, v uint64) {
	switch addr {
	case riscv.CSRCycle, riscv.CSRInstret, riscv.CSRTime, riscv.CSRMHartID:
		return
	default:
		c.CSR[addr] = v
	}
}

// SetReservation records a load-reserved address for a subsequent
// store-conditional.
func (c *CPU) SetReservation(addr uint64) {
	c.ReservationValid = true
	c.ReservationAddr = addr
}

// ClearReservation invalidates any outstanding reservation. Called after
// a successful or failed SC, and by any store that could otherwise race
// a concurrent LR/SC pair.
func (c *CPU) ClearReservation() {
	c.ReservationValid = false
}

// CheckReservation reports whether addr matches a currently valid
// reservation, the precondition an SC must satisfy to succeed.
func (c *CPU) CheckReservation(addr uint64) bool {
	return c.ReservationValid && c.ReservationAddr == addr
}

// Fork returns a deep copy of the register file for use by a cloned
// hart; CSR map entries are copied rather than shared.
func (c *CPU) Fork() *CPU {
	nc := &CPU{Reg: c.Reg, PC: c.PC, Counter: 0, XLen: c.XLen, CSR: make(map[uint32]uint64, len(c.CSR))}
	for k, v := range c.CSR {
		nc.CSR[k] = v
	}
	return nc
}
