package main

import (
	"errors"
	"fmt"
	"runtime"

	flag "github.com/spf13/pflag"
)

var (
	errHelp    = errors.New("help requested")
	errNoInput = errors.New("no input files (see --help)")
)

type cliFlags struct {
	latex    string
	style    string
	outDir   string
	model    string
	workers  int
	maxDepth int
	tables   bool
	keepJSON bool
	verbose  bool
	version  bool
}

// parseFlags parses os.Args style arguments and returns the remaining file
// operands.
func parseFlags(args []string) (*cliFlags, []string, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("mathdocx", flag.ContinueOnError)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: mathdocx [flags] FILE...\n\n")
		fmt.Fprintf(fs.Output(), "Converts images (.png .jpg .webp ...), analysis .json files and\n")
		fmt.Fprintf(fs.Output(), "documents (.md .html .docx .pdf .csv .xlsx .txt) to Word files.\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&f.latex, "latex", "", "parse a LaTeX expression, print its tree as JSON and exit")
	fs.StringVarP(&f.style, "style", "s", "", "YAML style file")
	fs.StringVarP(&f.outDir, "out-dir", "o", "", "output directory (default: next to each input)")
	fs.StringVar(&f.model, "model", "", "Claude model for image analysis (default: $ANTHROPIC_MODEL)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel conversions (0 = auto)")
	fs.IntVar(&f.maxDepth, "max-depth", 0, "maximum equation nesting depth (default: $MAX_MATH_DEPTH)")
	fs.BoolVar(&f.tables, "tables", false, "also export tables to an .xlsx workbook")
	fs.BoolVar(&f.keepJSON, "json", false, "also write the analysis JSON")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log progress to stderr")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, errHelp
		}
		return nil, nil, err
	}
	if f.workers < 0 {
		return nil, nil, fmt.Errorf("--workers must be >= 0, got %d", f.workers)
	}
	if f.maxDepth < 0 {
		return nil, nil, fmt.Errorf("--max-depth must be >= 0, got %d", f.maxDepth)
	}

	files := fs.Args()
	if len(files) == 0 && f.latex == "" && !f.version {
		return nil, nil, errNoInput
	}
	return f, files, nil
}

// resolveWorkers picks the number of parallel conversions.
// Priority: explicit flag > GOMAXPROCS-based calculation, never more than
// the number of files.
func resolveWorkers(flagWorkers, files int) int {
	n := flagWorkers
	if n <= 0 {
		n = min(max(runtime.GOMAXPROCS(0)/2, 1), 8)
	}
	return max(min(n, files), 1)
}
