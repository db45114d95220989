package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/example/riscv-core/cmd"
)

func main() {
	app := &cli.App{
		Name:  "riscv-core",
		Usage: "a user-mode RISC-V interpreter: decode, dispatch, and a paged guest memory model",
		Commands: []*cli.Command{
			cmd.RunCommand,
			cmd.StepCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
