// Package main provides obatool, the offline bulk-load and indexing tool
// for obakv databases.
package main

import (
	"fmt"
	"os"
)

func main() {
	exitCode := run(os.Args)
	os.Exit(exitCode)
}

// run executes the CLI and returns an exit code.
func run(args []string) int {
	if len(args) < 2 {
		printUsage(os.Stdout)
		return 1
	}

	switch args[1] {
	case "add":
		return addCmd(args[2:])
	case "index":
		return indexCmd(args[2:])
	case "cat":
		return catCmd(args[2:])
	case "delete":
		return deleteCmd(args[2:])
	case "config":
		return configCmd(args[2:])
	case "version":
		return versionCmd(args[2:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[1])
		fmt.Fprintln(os.Stderr, "Run 'obatool help' for usage.")
		return 1
	}
}
