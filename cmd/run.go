package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/example/riscv-core/machine"
)

var (
	RunELFFlag = &cli.PathFlag{
		Name:     "elf",
		Usage:    "path to a statically linked RISC-V ELF binary to run",
		Required: true,
	}
	RunModeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "dispatch loop: switch, threaded, or tailcall",
		Value: "threaded",
	}
	RunCompressedFlag = &cli.BoolFlag{
		Name:  "compressed",
		Usage: "enable the C extension's 16-bit instruction slots",
	}
	RunMaxStepsFlag = &cli.Uint64Flag{
		Name:  "max-steps",
		Usage: "stop after this many instructions even if the guest hasn't exited (0 = unbounded)",
	}
	RunInfoEveryFlag = &cli.Uint64Flag{
		Name:  "info-every",
		Usage: "log progress every N instructions (0 disables)",
		Value: 10_000_000,
	}
	RunPProfCPUFlag = &cli.BoolFlag{
		Name:  "pprof-cpu",
		Usage: "capture a CPU profile of this run to ./cpu.pprof",
	}
	RunSnapshotFlag = &cli.PathFlag{
		Name:  "snapshot",
		Usage: "write a final state snapshot to this path once the guest exits or the step budget runs out",
	}
)

func parseMode(s string) (machine.Mode, error) {
	switch s {
	case "switch":
		return machine.ModeSwitch, nil
	case "threaded", "":
		return machine.ModeThreaded, nil
	case "tailcall":
		return machine.ModeTailCall, nil
	default:
		return 0, fmt.Errorf("unrecognized dispatch mode %q", s)
	}
}

// Run loads the ELF named by --elf and drives it to completion (or to
// --max-steps, if set), logging periodic progress the way the reference
// command-line tooling does for its proof-generation runs, minus the
// proof and preimage-oracle machinery this engine has no use for.
func Run(ctx *cli.Context) error {
	if ctx.Bool(RunPProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	mode, err := parseMode(ctx.String(RunModeFlag.Name))
	if err != nil {
		return err
	}

	mach, err := LoadELF(ctx.Path(RunELFFlag.Name))
	if err != nil {
		return err
	}
	mach.SetMode(mode)
	mach.SetCompressed(ctx.Bool(RunCompressedFlag.Name))

	l := Logger(os.Stderr, log.LevelInfo)
	mach.Syscalls().Stdout = &GuestWriter{Name: "guest stdout", Log: l}
	mach.Syscalls().Stderr = &GuestWriter{Name: "guest stderr", Log: l}

	maxSteps := ctx.Uint64(RunMaxStepsFlag.Name)
	infoEvery := ctx.Uint64(RunInfoEveryFlag.Name)

	start := time.Now()
	var total uint64
	for !mach.Exited() {
		if maxSteps != 0 && total >= maxSteps {
			break
		}
		budget := infoEvery
		if budget == 0 || (maxSteps != 0 && maxSteps-total < budget) {
			if maxSteps != 0 {
				budget = maxSteps - total
			} else {
				budget = 1 << 20
			}
		}
		n, err := mach.Run(budget)
		total += n
		if err != nil {
			return fmt.Errorf("failed at step %d (pc=%s): %w", total, HexU64(mach.CPU().PC), err)
		}
		if infoEvery != 0 {
			elapsed := time.Since(start)
			l.Info("processing",
				"step", total,
				"pc", HexU64(mach.CPU().PC),
				"ips", float64(total)/elapsed.Seconds(),
			)
		}
	}

	l.Info("guest exited", "step", total, "code", mach.ExitCode(), "elapsed", time.Since(start))

	if out := ctx.Path(RunSnapshotFlag.Name); out != "" {
		if err := WriteSnapshot(mach, total, out); err != nil {
			return err
		}
	}
	if mach.ExitCode() != 0 {
		os.Exit(int(mach.ExitCode()))
	}
	return nil
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "run a RISC-V ELF binary to completion",
	Description: "Load a statically linked RISC-V ELF binary and interpret it to completion or to a step budget.",
	Action:      Run,
	Flags: []cli.Flag{
		RunELFFlag,
		RunModeFlag,
		RunCompressedFlag,
		RunMaxStepsFlag,
		RunInfoEveryFlag,
		RunPProfCPUFlag,
		RunSnapshotFlag,
	},
}
