package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/KilimcininKorOglu/obakv/internal/backend"
	"github.com/KilimcininKorOglu/obakv/internal/config"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// indexCmd rebuilds indexes from the stored entries. Naming entryDN
// upgrades a legacy DN tree instead.
func indexCmd(args []string) int {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", defaultConfigPath, "Path to configuration file")
	quick := fs.Bool("q", false, "Quick mode")
	truncate := fs.Bool("t", false, "Empty the indexes before rebuilding them")
	threads := fs.Int("threads", 0, "Indexing goroutines (overrides config)")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printIndexUsage(os.Stdout)
		return 0
	}
	attrs := fs.Args()

	e, err := openEnv(*configFile, false, func(tc *config.ToolConfig) {
		if *quick {
			tc.Quick = true
		}
		if *threads > 0 {
			tc.Threads = *threads
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer e.close()

	var mode backend.Mode
	if e.cfg.Tool.Quick {
		mode |= backend.ModeQuick
	}
	if *truncate {
		mode |= backend.ModeTruncate
	}
	t, err := e.b.ToolOpen(mode, e.cfg.Tool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if len(attrs) > 0 && strings.EqualFold(attrs[0], backend.AttrEntryDN) {
		if !e.b.NeedsUpgrade() {
			e.log.Info("dn2id already in current format")
		}
		if err := t.Reindex(storage.NOID, attrs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			t.Close()
			return 1
		}
		return reportClose(t)
	}

	rc := 0
	n := 0
	p := newProgress(e.log, "reindexing entries")
	id, err := t.First("", storage.ScopeSubtree, nil)
	for ; err == nil && id != storage.NOID; id, err = t.Next() {
		if err = t.Reindex(id, attrs); err != nil {
			break
		}
		n++
		p.tick(n, id)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		rc = 1
	}

	if reportClose(t) != 0 {
		rc = 1
	}
	e.log.Info("reindex finished", "entries", n, "mode", mode.String(), "elapsed", p.elapsed())
	return rc
}
