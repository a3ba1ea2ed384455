package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"
)

type compileCmd struct{}

func (*compileCmd) Name() string { return "compile" }

func (*compileCmd) Synopsis() string { return "Compile a source program to bytecode." }

func (*compileCmd) Usage() string {
	return `compile <file>...:
Compile each given source file, writing its text and data segments to a
sibling .cvm file.
`
}

func (*compileCmd) SetFlags(f *flag.FlagSet) {}

func (*compileCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
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

		name := strings.TrimSuffix(file, filepath.Ext(file)) + ".cvm"
		out, err := os.Create(name)
		if err != nil {
			fmt.Printf("error creating %s: %s\n", name, err)
			return subcommands.ExitFailure
		}
		err = writeBytecode(out, comp)
		out.Close()
		if err != nil {
			fmt.Printf("error writing %s: %s\n", name, err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
