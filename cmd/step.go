package cmd

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	StepELFFlag   = RunELFFlag
	StepCountFlag = &cli.Uint64Flag{
		Name:  "count",
		Usage: "number of instructions to single-step",
		Value: 1,
	}
	StepSnapshotFlag = &cli.PathFlag{
		Name:  "snapshot",
		Usage: "write a state snapshot to this path after stepping",
	}
)

// Step single-steps a freshly loaded guest --count instructions,
// logging each PC as it goes. It exists for debugging a decoder or
// dispatch change on a small instruction sequence without running an
// entire program to completion.
func Step(ctx *cli.Context) error {
	mode, err := parseMode(ctx.String(RunModeFlag.Name))
	if err != nil {
		return err
	}

	mach, err := LoadELF(ctx.Path(StepELFFlag.Name))
	if err != nil {
		return err
	}
	mach.SetMode(mode)
	mach.SetCompressed(ctx.Bool(RunCompressedFlag.Name))

	l := Logger(os.Stderr, log.LevelInfo)
	mach.Syscalls().Stdout = &GuestWriter{Name: "guest stdout", Log: l}
	mach.Syscalls().Stderr = &GuestWriter{Name: "guest stderr", Log: l}

	count := ctx.Uint64(StepCountFlag.Name)
	for i := uint64(0); i < count && !mach.Exited(); i++ {
		pcBefore := mach.CPU().PC
		if err := mach.Step(); err != nil {
			l.Error("trapped", "step", i, "pc", HexU64(pcBefore), "err", err)
			return err
		}
		l.Info("stepped", "step", i, "from", HexU64(pcBefore), "to", HexU64(mach.CPU().PC))
	}

	if out := ctx.Path(StepSnapshotFlag.Name); out != "" {
		if err := WriteSnapshot(mach, count, out); err != nil {
			return err
		}
	}
	return nil
}

var StepCommand = &cli.Command{
	Name:        "step",
	Usage:       "single-step a RISC-V ELF binary for debugging",
	Description: "Load a statically linked RISC-V ELF binary and execute a small, logged number of instructions.",
	Action:      Step,
	Flags: []cli.Flag{
		StepELFFlag,
		StepCountFlag,
		RunModeFlag,
		RunCompressedFlag,
		StepSnapshotFlag,
	},
}
