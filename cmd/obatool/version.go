package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/KilimcininKorOglu/obakv/internal/storage/codec"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = "0.1.0"
	commit    = "unknown"
	buildDate = "unknown"
)

// compressions lists the entry codecs this build can read and write.
var compressions = []codec.Compression{codec.CompressionNone, codec.CompressionLZ4, codec.CompressionZSTD}

func versionCmd(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	short := fs.Bool("short", false, "Show only version number")
	configPath := fs.String("config", "", "Also describe the database of this configuration")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printVersionUsage(os.Stdout)
		return 0
	}

	if *short {
		fmt.Println(version)
		return 0
	}

	writeVersion(os.Stdout)
	if *configPath == "" {
		return 0
	}

	e, err := openEnv(*configPath, true, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer e.close()
	describeDatabase(os.Stdout, e)
	return 0
}

func writeVersion(w io.Writer) {
	fmt.Fprintf(w, "obatool %s (commit %s, built %s, %s %s/%s)\n",
		version, commit, buildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  Data file:    %s\n", kv.DataFileName)
	fmt.Fprint(w, "  Compression:")
	for _, c := range compressions {
		fmt.Fprintf(w, " %s", c)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  DN tree:      subtree counts")
}

// describeDatabase prints what a tool session would work against.
func describeDatabase(w io.Writer, e *env) {
	format := "current"
	if e.b.NeedsUpgrade() {
		format = "legacy (run 'obatool index entryDN' to upgrade)"
	}
	compression := e.cfg.Backend.Compression
	if compression == "" {
		compression = codec.CompressionNone.String()
	}

	fmt.Fprintf(w, "Database %s\n", filepath.Join(e.cfg.Backend.DataDir, kv.DataFileName))
	fmt.Fprintf(w, "  Suffix:       %s\n", e.b.Suffix())
	fmt.Fprintf(w, "  Compression:  %s\n", compression)
	fmt.Fprintf(w, "  DN tree:      %s\n", format)
	indexes := e.b.Indexes()
	for pos := 0; pos < indexes.Len(); pos++ {
		idx := indexes.At(pos)
		fmt.Fprintf(w, "  Index:        %s (%s)\n", idx.Attribute, idx.Types)
	}
}
