// Package main is the entry point for the dishdex CLI.
package main

import (
	"os"

	"github.com/runger/dishdex/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
