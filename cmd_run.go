package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"github.com/muhtutorials/cvm/cpu"
)

type runCmd struct {
	timeout time.Duration
}

func (*runCmd) Name() string { return "run" }

func (*runCmd) Synopsis() string { return "Compile and immediately execute a source program." }

func (*runCmd) Usage() string {
	return `run [--timeout=0] <file> [program args...]:
Compile the given source file and execute it immediately, forwarding any
trailing arguments to the compiled program's argc/argv. Exits with the
program's own exit status.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&r.timeout, "timeout", 0, "abort execution after this long (0 disables the deadline)")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	args := f.Args()
	if len(args) == 0 {
		fmt.Println("run: missing source file")
		return subcommands.ExitUsageError
	}
	file := args[0]
	progArgs := args[1:]

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
	mainAddr, err := comp.MainAddr()
	if err != nil {
		fmt.Println("error:", err)
		return subcommands.ExitFailure
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, flush := cpu.BufferedStdout()
	m := cpu.New(comp.Text().Instrs(), comp.Data(), cpu.NewDefaultHost(out))
	m.WithContext(runCtx)

	var g errgroup.Group
	var status int64
	g.Go(func() error {
		s, runErr := m.Run(mainAddr, progArgs)
		status = s
		return runErr
	})
	runErr := g.Wait()
	if flushErr := flush(); flushErr != nil && runErr == nil {
		runErr = flushErr
	}
	if runErr != nil {
		fmt.Println("error running file:", runErr)
		return subcommands.ExitFailure
	}

	os.Exit(int(status))
	return subcommands.ExitSuccess
}
