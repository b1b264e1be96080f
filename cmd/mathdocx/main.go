// Command mathdocx converts page images, analysis JSON files and documents
// into Word files with native equations, without running the HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	flags, files, err := parseFlags(os.Args)
	if err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// maxprocs.Set only fails on an invalid GOMAXPROCS value; runtime defaults apply then.
	if flags.verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags, files, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run dispatches to LaTeX inspection or file conversion.
func run(ctx context.Context, flags *cliFlags, files []string, stdout, stderr io.Writer) error {
	if flags.version {
		fmt.Fprintf(stdout, "mathdocx %s\n", Version)
		return nil
	}
	if flags.latex != "" {
		return dumpLatex(stdout, flags.latex, flags.maxDepth)
	}
	return convertFiles(ctx, flags, files, stdout, stderr)
}
