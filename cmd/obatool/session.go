package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/KilimcininKorOglu/obakv/internal/backend"
	"github.com/KilimcininKorOglu/obakv/internal/config"
	"github.com/KilimcininKorOglu/obakv/internal/logging"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

const defaultConfigPath = "/etc/obakv/obakv.yaml"

// progressInterval throttles progress messages of long running commands.
const progressInterval = 5 * time.Second

// env is what every database command starts from.
type env struct {
	cfg *config.Config
	log logging.Logger
	b   *backend.Backend
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// openEnv loads the configuration, builds the logger and opens the backend.
// adjust may override tool settings from command line flags before the
// configuration is validated again.
func openEnv(path string, readOnly bool, adjust func(*config.ToolConfig)) (*env, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(&cfg.Tool)
		if errs := config.ValidateConfig(cfg); len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
	}

	log, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log = log.Named("obatool")

	open := backend.Open
	if readOnly {
		open = backend.OpenReadOnly
	}
	b, err := open(cfg.Backend, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend: %w", err)
	}
	return &env{cfg: cfg, log: log, b: b}, nil
}

func (e *env) close() {
	if err := e.b.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: closing backend: %v\n", err)
	}
}

// progress logs at most once per progressInterval.
type progress struct {
	log   logging.Logger
	msg   string
	start time.Time
	s     rate.Sometimes
}

func newProgress(log logging.Logger, msg string) *progress {
	return &progress{
		log:   log,
		msg:   msg,
		start: time.Now(),
		s:     rate.Sometimes{Interval: progressInterval},
	}
}

func (p *progress) tick(count int, id storage.ID) {
	p.s.Do(func() {
		p.log.Info(p.msg, "count", count, "id", uint64(id), "elapsed", time.Since(p.start).Round(time.Millisecond))
	})
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

func parseScope(s string) (storage.Scope, error) {
	switch strings.ToLower(s) {
	case "base":
		return storage.ScopeBase, nil
	case "one", "onelevel":
		return storage.ScopeOneLevel, nil
	case "sub", "subtree":
		return storage.ScopeSubtree, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", s)
	}
}

// reportClose closes the session and prints what it reports.
func reportClose(t *backend.Tool) int {
	if err := t.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
