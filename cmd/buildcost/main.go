// Package main is the entry point for the buildcost CLI.
package main

import (
	"os"

	"buildcost/cmd/buildcost/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
