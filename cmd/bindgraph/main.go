package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/smith-xyz/bindgraph/pkg/appconfig"
	"github.com/smith-xyz/bindgraph/pkg/graph"
	"github.com/smith-xyz/bindgraph/pkg/inspect"
	"github.com/smith-xyz/bindgraph/pkg/pkgindex"
	"github.com/smith-xyz/bindgraph/pkg/report"
	"github.com/smith-xyz/bindgraph/pkg/utils"
	"github.com/smith-xyz/bindgraph/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		verbose     = flag.Bool("v", false, "Verbose output")
		pkgRoots    = flag.String("pkg-roots", "", "Comma-separated package cache roots (overrides config default_roots and BINDGRAPH_PACKAGE_ROOT)")
		jsonOutput  = flag.Bool("json", true, "Write the dependency graph as JSON to stdout")
		showVersion = flag.Bool("version", false, "Show version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetVersionWithCommit())
		return 0
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bindgraph [flags] <file-or-directory>")
		return -1
	}
	target := flag.Arg(0)

	targetIsDir := utils.DirectoryExists(target)
	if !targetIsDir && !utils.FileExists(target) {
		fmt.Fprintf(os.Stderr, "bindgraph: %s: no such file or directory\n", target)
		return -1
	}

	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bindgraph: loading configuration: %v\n", err)
		return -1
	}

	logger := utils.NewVerboseLogger(*verbose)

	roots := cfg.DefaultPackageRoots()
	if *pkgRoots != "" {
		roots = utils.ParseCommaDelimited(*pkgRoots)
	}

	pkgIdx := pkgindex.New(*cfg, roots, logger)
	if err := pkgIdx.Initialize(context.Background()); err != nil {
		logger.DebugLogf("bindgraph: package index initialization: %v\n", err)
	}
	defer func() {
		if err := pkgIdx.Commit(); err != nil {
			logger.DebugLogf("bindgraph: failed to persist hash cache: %v\n", err)
		}
	}()

	pipeline := inspect.New(cfg.Native, logger)
	builder := graph.NewBuilder(pipeline, pkgIdx, cfg.Analyzer, logger)

	var g *graph.Graph
	if targetIsDir {
		g, err = builder.BuildGraphForDirectory(context.Background(), target, cfg.Modules)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bindgraph: %v\n", err)
			return -1
		}
	} else {
		g = builder.BuildGraphForFile(target)
	}

	if *jsonOutput {
		if err := report.Write(os.Stdout, g); err != nil {
			fmt.Fprintf(os.Stderr, "bindgraph: writing report: %v\n", err)
			return -1
		}
	}

	return 0
}
