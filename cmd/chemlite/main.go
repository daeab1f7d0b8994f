// Command chemlite is the pathway file and API client CLI.
package main

import (
	"os"

	"github.com/turtacn/chemlite/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// Execute already reports the error on stderr.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
