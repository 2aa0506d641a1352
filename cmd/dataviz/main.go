// Package main provides the CLI for dataviz.
package main

import (
	"os"

	"github.com/leapstack-labs/dataviz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
