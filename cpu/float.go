package cpu

import "math"

// nanBoxUpper marks the upper 32 bits of a float register so a single-precision
// value stored there is distinguishable from a double, per the F/D
// extension's NaN-boxing rule: any 32-bit float placed in a 64-bit slot
// must have all upper bits set, else it reads back as a quiet NaN.
const nanBoxUpper = 0xFFFFFFFF00000000

// FCSR holds the floating-point control and status bits (dynamic
// rounding mode plus accrued exception flags), addressed as CSR 0x003
// but kept out of the general CSR map since every float instruction
// touches it.
type FCSR struct {
	RoundingMode uint8
	Flags        uint8
}

// FPU is the 32-register float bank shared by F and D instructions; both
// widths live in the same 64-bit slots, single-precision values NaN-boxed.
type FPU struct {
	Reg  [32]uint64
	FCSR FCSR
}

// GetF32 unboxes register r as a single-precision float. A register
// whose upper bits aren't a valid NaN box reads back as canonical NaN,
// matching the ISA's "NaN-boxing" requirement for illegal encodings.
func (f *FPU) GetF32(r uint8) float32 {
	v := f.Reg[r]
	if v&nanBoxUpper != nanBoxUpper {
		return float32(math.NaN())
	}
	return math.Float32frombits(uint32(v))
}

// SetF32 stores a single-precision result, NaN-boxed into the slot.
func (f *FPU) SetF32(r uint8, v float32) {
	f.Reg[r] = nanBoxUpper | uint64(math.Float32bits(v))
}

// GetF64 reads register r as a double-precision float.
func (f *FPU) GetF64(r uint8) float64 {
	return math.Float64frombits(f.Reg[r])
}

// SetF64 stores a double-precision result.
func (f *FPU) SetF64(r uint8, v float64) {
	f.Reg[r] = math.Float64bits(v)
}
