// Package main is the entry point for the caravel CLI.
//
// The binary deploys, scales, inspects, and tears down multi-container
// stacks defined in YAML stack files. All functionality lives in the
// internal/cli package, which defines the cobra commands.
package main

import (
	"github.com/mmr-tortoise/caravel/internal/cli"
)

// version, commit, and date are set at build time via ldflags. They
// provide binary identification for the --version flag output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
