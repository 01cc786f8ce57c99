// Package main provides the CLI for the tbmerge TB burden reconciler.
package main

import (
	"os"

	"github.com/leapstack-labs/tbmerge/internal/cli"
)

func main() {
	os.Exit(cli.ExitCode(cli.Execute()))
}
