// Package main is the entry point for planectl, the modelplane command
// line tool.
package main

import (
	"os"

	"modelplane/cmd/planectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
