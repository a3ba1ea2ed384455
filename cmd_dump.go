package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type dumpCmd struct{}

func (*dumpCmd) Name() string { return "dump" }

func (*dumpCmd) Synopsis() string { return "Disassemble a compiled source program." }

func (*dumpCmd) Usage() string {
	return `dump <file>...:
Compile the given source file and print its text segment as a stream of
opcodes and operands.
`
}

func (*dumpCmd) SetFlags(f *flag.FlagSet) {}

func (*dumpCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	for _, file := range f.Args() {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Printf("error reading %s: %s\n", file, err)
			return subcommands.ExitFailure
		}

		comp, err := compileSource(src)
		if err != nil {
			fmt.Println("compile error:", err)
			return subcommands.ExitFailure
		}

		for i, instr := range comp.Text().Instrs() {
			if instr.Op.HasImm() {
				fmt.Printf("%04d %-5s %d\n", i, instr.Op, instr.Imm)
			} else {
				fmt.Printf("%04d %-5s\n", i, instr.Op)
			}
		}
	}
	return subcommands.ExitSuccess
}
