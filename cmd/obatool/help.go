package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `obatool - offline bulk load and indexing tool for obakv databases

Usage:
  obatool <command> [options]

Commands:
  add         Load entries from LDIF
  index       Rebuild indexes or upgrade the DN tree
  cat         Export entries as LDIF
  delete      Delete leaf entries
  config      Configuration management
  version     Show version information

Use "obatool <command> -h" for more information about a command.
`)
}

func printAddUsage(w io.Writer) {
	fmt.Fprint(w, `Load entries from LDIF

Usage:
  obatool add [options]

Options:
  -config string
        Path to configuration file (default "/etc/obakv/obakv.yaml")
  -l string
        LDIF input file (default stdin)
  -q
        Quick mode: batch commits and cache index writes
  -threads int
        Indexing goroutines (overrides config)
  -c
        Continue after entries that fail
  -creator string
        DN recorded as creatorsName and modifiersName
  -h, -help
        Show this help message

Parent entries that are missing from the input are created as
placeholders. The command fails if any placeholder is still empty
at the end of the load.
`)
}

func printIndexUsage(w io.Writer) {
	fmt.Fprint(w, `Rebuild indexes or upgrade the DN tree

Usage:
  obatool index [options] [attribute...]

Without attributes every configured index is rebuilt. The attribute
entryDN upgrades a DN tree written in the legacy format.

Options:
  -config string
        Path to configuration file (default "/etc/obakv/obakv.yaml")
  -q
        Quick mode: batch commits and cache index writes
  -t
        Empty the indexes before rebuilding them
  -threads int
        Indexing goroutines (overrides config)
  -h, -help
        Show this help message
`)
}

func printCatUsage(w io.Writer) {
	fmt.Fprint(w, `Export entries as LDIF

Usage:
  obatool cat [options]

Options:
  -config string
        Path to configuration file (default "/etc/obakv/obakv.yaml")
  -o string
        LDIF output file (default stdout)
  -b string
        Search base (default the whole database)
  -s string
        Search scope: base, one, sub (default "sub")
  -f string
        Search filter, e.g. "(objectClass=person)"
  -h, -help
        Show this help message
`)
}

func printDeleteUsage(w io.Writer) {
	fmt.Fprint(w, `Delete leaf entries

Usage:
  obatool delete [options] dn...

Options:
  -config string
        Path to configuration file (default "/etc/obakv/obakv.yaml")
  -c
        Continue after entries that fail
  -h, -help
        Show this help message
`)
}

func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  obatool config <subcommand> [options]

Subcommands:
  validate    Validate a configuration file
  init        Print the default configuration

Options:
  -config string
        Path to configuration file (validate)
  -suffix string
        Backend suffix DN (init)
  -data-dir string
        Data directory path (init)
`)
}

func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  obatool version [options]

Prints the build, the database file name, the supported entry compressions
and the DN tree format. With -config the database of that configuration is
described as well.

Options:
  -short
        Show only version number
  -config string
        Configuration file of the database to describe
  -h, -help
        Show this help message
`)
}
