// Mergelog - emerge log analyzer
//
// Mergelog parses Gentoo emerge.log files and reports merge history,
// per-package statistics, and predicted finish times for running merges.
package main

import (
	"os"

	"github.com/ccollicutt/mergelog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
