// Command bindhelper is the process-isolated inspection boundary: it
// inspects exactly one file and writes the resulting ModuleData to stdout
// using the binary encoding shared with the rest of bindgraph, so a caller
// can run it out-of-process (a separate address space per native or
// managed binary under inspection) without linking against the analyzer.
package main

import (
	"fmt"
	"os"

	"github.com/smith-xyz/bindgraph/pkg/appconfig"
	"github.com/smith-xyz/bindgraph/pkg/inspect"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: bindhelper <file>")
		return -1
	}
	file := os.Args[1]
	verbose := os.Getenv("BINDGRAPH_VERBOSE") != ""

	utils.VerboseLogf(verbose, "bindhelper: inspecting %s\n", file)

	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bindhelper: loading configuration: %v\n", err)
		return -1
	}

	logger := utils.NewVerboseLogger(verbose)
	pipeline := inspect.New(cfg.Native, logger)

	result := pipeline.Run(file)

	if _, err := os.Stdout.Write(moduledata.Serialize(result)); err != nil {
		fmt.Fprintf(os.Stderr, "bindhelper: writing output: %v\n", err)
		return -1
	}
	utils.VerboseLog(verbose, "bindhelper: done\n")
	return 0
}
