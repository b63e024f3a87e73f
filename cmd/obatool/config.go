package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KilimcininKorOglu/obakv/internal/config"
)

func configCmd(args []string) int {
	if len(args) < 1 {
		printConfigUsage(os.Stdout)
		return 1
	}

	switch args[0] {
	case "validate":
		return configValidateCmd(args[1:])
	case "init":
		return configInitCmd(args[1:])
	case "-h", "-help", "--help", "help":
		printConfigUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		printConfigUsage(os.Stderr)
		return 1
	}
}

func configValidateCmd(args []string) int {
	fs := flag.NewFlagSet("config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", defaultConfigPath, "Path to configuration file")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printConfigUsage(os.Stdout)
		return 0
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration validation failed:")
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "  - %v\n", err)
		}
		return 1
	}

	fmt.Println("Configuration is valid")
	return 0
}

// configInitCmd prints the default configuration.
func configInitCmd(args []string) int {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	suffix := fs.String("suffix", "", "Backend suffix DN")
	dataDir := fs.String("data-dir", "", "Data directory path")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printConfigUsage(os.Stdout)
		return 0
	}

	cfg := config.DefaultConfig()
	if *suffix != "" {
		cfg.Backend.Suffix = *suffix
	}
	if *dataDir != "" {
		cfg.Backend.DataDir = *dataDir
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal config: %v\n", err)
		return 1
	}
	fmt.Print("# obakv configuration\n# Generated by: obatool config init\n\n")
	fmt.Print(string(data))
	return 0
}
