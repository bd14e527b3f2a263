// Package main implements the go-dataflow CLI (gdf).
// It loads tabled problem documents, solves them with the IFDS or IDE
// solver and prints the results for a host pipeline.
package main

import (
	"os"

	"github.com/l3aro/go-dataflow/cmd/gdf/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.RootCmd.Version = version
	if buildTime != "" {
		commands.RootCmd.Version = version + " (built " + buildTime + ")"
	}
	commands.RootCmd.SetVersionTemplate(`gdf version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
