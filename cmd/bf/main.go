// Command bf runs Brainfuck programs: by default through the JIT
// engine, or through the tree-walking interpreter with -int, or just
// prints the optimized IR with -ast.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lcox74/bfjit/internal/interp"
	"github.com/lcox74/bfjit/internal/ir"
	"github.com/lcox74/bfjit/internal/jit"
)

const (
	exitOK = iota
	exitUsage
	exitParse
	exitRuntime
	exitJITSetup
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: bf [options] <file>

options:
  -int          run with the tree-walking interpreter instead of the JIT
  -ast, -d      parse and print the optimized IR, without running it
  -h, -help     show this message`)
}

func main() {
	fs := flag.NewFlagSet("bf", flag.ContinueOnError)
	fs.Usage = func() {}

	useInterp := fs.Bool("int", false, "run with the tree-walking interpreter")
	dumpAST := fs.Bool("ast", false, "print the optimized IR and exit")
	dumpASTShort := fs.Bool("d", false, "shorthand for -ast")
	help := fs.Bool("h", false, "show usage")
	helpLong := fs.Bool("help", false, "show usage")

	if err := fs.Parse(os.Args[1:]); err != nil {
		usage()
		os.Exit(exitUsage)
	}

	if *help || *helpLong {
		usage()
		os.Exit(exitOK)
	}

	if fs.NArg() != 1 {
		usage()
		os.Exit(exitUsage)
	}

	file := filepath.Clean(fs.Arg(0))
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	prog, err := ir.Parse(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitParse)
	}
	prog = ir.Optimize(prog)

	if *dumpAST || *dumpASTShort {
		fmt.Print(ir.Dump(prog))
		os.Exit(exitOK)
	}

	if *useInterp {
		in := interp.New(interp.WithInput(os.Stdin), interp.WithOutput(os.Stdout))
		if err := in.Run(prog); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitRuntime)
		}
		return
	}

	engine, err := jit.New(jit.WithInput(os.Stdin), jit.WithOutput(os.Stdout))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitJITSetup)
	}
	if err := engine.Run(prog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch err.(type) {
		case *jit.CodegenError, *jit.UnsupportedHostError:
			os.Exit(exitJITSetup)
		default:
			os.Exit(exitRuntime)
		}
	}
}
