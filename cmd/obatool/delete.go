package main

import (
	"flag"
	"fmt"
	"os"
)

// deleteCmd removes leaf entries by DN.
func deleteCmd(args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", defaultConfigPath, "Path to configuration file")
	cont := fs.Bool("c", false, "Continue after entries that fail")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printDeleteUsage(os.Stdout)
		return 0
	}

	dns := fs.Args()
	if len(dns) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one DN is required")
		printDeleteUsage(os.Stderr)
		return 1
	}

	e, err := openEnv(*configFile, false, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer e.close()

	t, err := e.b.ToolOpen(0, e.cfg.Tool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	rc := 0
	for _, name := range dns {
		if err := t.Delete(name); err != nil {
			fmt.Fprintf(os.Stderr, "obatool delete: %s: %v\n", name, err)
			rc = 1
			if !*cont {
				break
			}
			continue
		}
		e.log.Info("entry deleted", "dn", name)
	}

	if reportClose(t) != 0 {
		rc = 1
	}
	return rc
}
