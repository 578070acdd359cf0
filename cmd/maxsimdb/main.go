// Package main provides the entry point for the maxsimdb CLI.
package main

import (
	"os"

	"github.com/maxsimdb/maxsimdb/cmd/maxsimdb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
