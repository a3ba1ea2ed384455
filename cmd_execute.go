package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/muhtutorials/cvm/cpu"
)

type executeCmd struct{}

func (*executeCmd) Name() string { return "execute" }

func (*executeCmd) Synopsis() string { return "Execute a previously compiled .cvm file." }

func (*executeCmd) Usage() string {
	return `execute <file.cvm> [program args...]:
Load the bytecode contained in the given .cvm file and run it.
`
}

func (*executeCmd) SetFlags(f *flag.FlagSet) {}

func (*executeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	args := f.Args()
	if len(args) == 0 {
		fmt.Println("execute: missing bytecode file")
		return subcommands.ExitUsageError
	}
	file := args[0]
	progArgs := args[1:]

	in, err := os.Open(file)
	if err != nil {
		fmt.Println("error reading file:", err)
		return subcommands.ExitFailure
	}
	instrs, data, mainAddr, err := readBytecode(in)
	in.Close()
	if err != nil {
		fmt.Println("error reading file:", err)
		return subcommands.ExitFailure
	}

	out, flush := cpu.BufferedStdout()
	m := cpu.New(instrs, data, cpu.NewDefaultHost(out))
	m.WithContext(ctx)

	status, err := m.Run(mainAddr, progArgs)
	if flushErr := flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if err != nil {
		fmt.Println("error running file:", err)
		return subcommands.ExitFailure
	}
	os.Exit(int(status))
	return subcommands.ExitSuccess
}
