package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/KilimcininKorOglu/obakv/internal/backend"
	"github.com/KilimcininKorOglu/obakv/internal/config"
	"github.com/KilimcininKorOglu/obakv/internal/ldif"
)

// addCmd bulk loads entries from LDIF.
func addCmd(args []string) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", defaultConfigPath, "Path to configuration file")
	input := fs.String("l", "", "LDIF input file (default stdin)")
	quick := fs.Bool("q", false, "Quick mode")
	threads := fs.Int("threads", 0, "Indexing goroutines (overrides config)")
	cont := fs.Bool("c", false, "Continue after entries that fail")
	creator := fs.String("creator", "", "DN recorded as creatorsName")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printAddUsage(os.Stdout)
		return 0
	}

	in := io.Reader(os.Stdin)
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

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
	t, err := e.b.ToolOpen(mode, e.cfg.Tool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	rc := 0
	added, failed := 0, 0
	rd := ldif.NewReader(in)
	p := newProgress(e.log, "loading entries")
	for {
		entry, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			rc = 1
			break
		}

		if e.cfg.Tool.StampOperational {
			backend.StampOperational(entry, *creator, time.Now())
		}
		id, err := t.Put(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "obatool add: could not add entry dn=%q (line=%d): %v\n", entry.DN, rd.Line(), err)
			failed++
			if !*cont {
				rc = 1
				break
			}
			continue
		}
		added++
		p.tick(added, id)
	}

	if reportClose(t) != 0 {
		rc = 1
	}
	if failed > 0 {
		rc = 1
	}
	e.log.Info("load finished", "added", added, "failed", failed, "mode", mode.String(), "elapsed", p.elapsed())
	fmt.Printf("%d entries added, %d failed\n", added, failed)
	return rc
}
