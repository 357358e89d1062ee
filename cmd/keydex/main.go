// Package main provides the entry point for the keydex CLI.
package main

import (
	"os"

	"github.com/keydex/keydex/cmd/keydex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
