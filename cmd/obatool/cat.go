package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/KilimcininKorOglu/obakv/internal/backend"
	"github.com/KilimcininKorOglu/obakv/internal/filter"
	"github.com/KilimcininKorOglu/obakv/internal/ldif"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// catCmd exports entries as LDIF.
func catCmd(args []string) int {
	fs := flag.NewFlagSet("cat", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", defaultConfigPath, "Path to configuration file")
	output := fs.String("o", "", "LDIF output file (default stdout)")
	base := fs.String("b", "", "Search base (default the whole database)")
	scope := fs.String("s", "sub", "Search scope: base, one, sub")
	filterStr := fs.String("f", "", "Search filter")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printCatUsage(os.Stdout)
		return 0
	}

	sc, err := parseScope(*scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	var f *filter.Filter
	if *filterStr != "" {
		if f, err = filter.Parse(*filterStr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid filter: %v\n", err)
			return 1
		}
	}

	e, err := openEnv(*configFile, true, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer e.close()

	t, err := e.b.ToolOpen(backend.ModeReadOnly, e.cfg.Tool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer t.Close()

	out := io.Writer(os.Stdout)
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer file.Close()
		out = file
	}

	w := ldif.NewWriter(out)
	n := 0
	id, err := t.First(*base, sc, f)
	for ; err == nil && id != storage.NOID; id, err = t.Next() {
		var entry *storage.Entry
		if entry, err = t.Get(id); err != nil {
			break
		}
		if err = w.Write(entry); err != nil {
			break
		}
		n++
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	e.log.Debug("export finished", "entries", n)
	return 0
}
