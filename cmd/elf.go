package cmd

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/example/riscv-core/machine"
	"github.com/example/riscv-core/memory"
	"github.com/example/riscv-core/riscv"
)

const (
	defaultStackTop  = 0x0000_7fff_ffff_f000
	defaultStackSize = 8 << 20 // 8 MiB
	guestMMapStart   = 0x0000_1000_0000_0000
	guestMemoryMax   = 1 << 40

	auxPageSize = 6
	auxRandom   = 25
)

// LoadELF opens a statically linked RISC-V ELF binary at path and
// returns a Machine with every PT_LOAD segment mapped at its target
// address and attributes, a freshly initialized stack following the
// Linux process-startup ABI (argc/argv/envp/auxv), and PC set to the
// entry point. There is no interpreter/ld.so support: dynamically
// linked binaries are rejected, matching the exclusion of anything
// resembling kernel- or loader-level services.
func LoadELF(path string) (*machine.Machine, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file %q: %w", path, err)
	}
	defer f.Close()

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("ELF is not RISC-V, got %s", f.Machine)
	}
	if f.Type != elf.ET_EXEC {
		return nil, fmt.Errorf("only statically linked ET_EXEC binaries are supported, got %s", f.Type)
	}

	xlen := riscv.XLen64
	if f.Class == elf.ELFCLASS32 {
		xlen = riscv.XLen32
	}

	mem := memory.NewMemory(guestMMapStart, guestMemoryMax)
	for i, prog := range f.Progs {
		if prog.Type == elf.PT_INTERP {
			return nil, fmt.Errorf("dynamically linked ELF (PT_INTERP) is not supported")
		}
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Memsz)
		r := io.NewSectionReader(prog, 0, int64(prog.Filesz))
		if _, err := io.ReadFull(r, data[:prog.Filesz]); err != nil {
			return nil, fmt.Errorf("failed to read PT_LOAD segment %d: %w", i, err)
		}
		if err := mem.WriteBytes(prog.Vaddr, data); err != nil {
			return nil, fmt.Errorf("failed to load segment %d: %w", i, err)
		}
		attr := memory.Attr{Read: true, Write: prog.Flags&elf.PF_W != 0, Exec: prog.Flags&elf.PF_X != 0}
		mem.SetAttr(prog.Vaddr, prog.Memsz, attr)
	}

	mem.ImageStart = f.Entry
	mem.StackTop = defaultStackTop
	mem.StackBot = defaultStackTop - defaultStackSize
	mem.SetAttr(mem.StackBot, defaultStackSize, memory.RWAttr)

	sp, err := setupStack(mem, path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stack: %w", err)
	}

	mach := machine.New(xlen, mem)
	mach.CPU().PC = f.Entry
	mach.CPU().SetReg(riscv.RegSP, sp)
	return mach, nil
}

// setupStack lays out argc/argv/envp/auxv below StackTop per the Linux
// process-startup ABI, with a single argv[0] and no environment: this
// loader runs a guest binary directly rather than under a shell.
func setupStack(mem *memory.Memory, argv0 string) (uint64, error) {
	sp := mem.StackTop

	argv0Bytes := append([]byte(argv0), 0)
	sp -= uint64(len(argv0Bytes))
	sp &^= 7
	argv0Addr := sp
	if err := mem.WriteBytes(sp, argv0Bytes); err != nil {
		return 0, err
	}

	sp -= 16
	sp &^= 7
	randomAddr := sp
	if err := mem.WriteBytes(sp, make([]byte, 16)); err != nil {
		return 0, err
	}

	type auxEntry struct{ key, val uint64 }
	aux := []auxEntry{
		{auxPageSize, memory.PageSize},
		{auxRandom, randomAddr},
		{0, 0}, // AT_NULL terminator
	}

	slots := uint64(4 + len(aux)*2) // argc, argv[0], argv-terminator, envp-terminator, then each aux (key,val) pair
	sp -= slots * 8
	sp &^= 15

	cur := sp
	store := func(v uint64) error {
		if err := mem.Store(cur, 8, v); err != nil {
			return err
		}
		cur += 8
		return nil
	}
	if err := store(1); err != nil { // argc = 1
		return 0, err
	}
	if err := store(argv0Addr); err != nil { // argv[0]
		return 0, err
	}
	if err := store(0); err != nil { // argv terminator
		return 0, err
	}
	if err := store(0); err != nil { // envp terminator
		return 0, err
	}
	for _, e := range aux {
		if err := store(e.key); err != nil {
			return 0, err
		}
		if err := store(e.val); err != nil {
			return 0, err
		}
	}
	return sp, nil
}
