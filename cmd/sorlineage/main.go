// Package main is the sorlineage command.
package main

import (
	"os"

	"github.com/leapstack-labs/sorlineage/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
