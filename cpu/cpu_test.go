package cpu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/riscv-core/riscv"
)

func TestRegZeroHardwired(t *testing.T) {
	c := New(riscv.XLen64)
	c.SetReg(riscv.RegZero, 0xdeadbeef)
	require.Equal(t, uint64(0), c.GetReg(riscv.RegZero))
}

func TestSetRegTruncatesOn32Bit(t *testing.T) {
	c := New(riscv.XLen32)
	c.SetReg(5, 0x1_0000_0001)
	require.Equal(t, uint64(1), c.GetReg(5))
}

func TestReservationLifecycle(t *testing.T) {
	c := New(riscv.XLen64)
	require.False(t, c.CheckReservation(0x1000))
	c.SetReservation(0x1000)
	require.True(t, c.CheckReservation(0x1000))
	require.False(t, c.CheckReservation(0x2000))
	c.ClearReservation()
	require.False(t, c.CheckReservation(0x1000))
}

func TestCSRCounterIsSynthesized(t *testing.T) {
	c := New(riscv.XLen64)
	c.Counter = 42
	require.Equal(t, uint64(42), c.ReadCSR(riscv.CSRInstret))
	c.WriteCSR(riscv.CSRInstret, 100) // ignored, read-only
	require.Equal(t, uint64(42), c.ReadCSR(riscv.CSRInstret))
}

func TestFork(t *testing.T) {
	c := New(riscv.XLen64)
	c.SetReg(1, 7)
	c.WriteCSR(0x100, 9)
	c.Counter = 5
	nc := c.Fork()
	require.Equal(t, uint64(7), nc.GetReg(1))
	require.Equal(t, uint64(0), nc.Counter)
	nc.WriteCSR(0x100, 55)
	require.Equal(t, uint64(9), c.ReadCSR(0x100))
}
