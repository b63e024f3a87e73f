package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KilimcininKorOglu/obakv/internal/storage/codec"
	"github.com/KilimcininKorOglu/obakv/internal/storage/dn"
	"github.com/KilimcininKorOglu/obakv/internal/storage/index"
)

// MaxThreads bounds tool.threads.
const MaxThreads = 64

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error
	errs = append(errs, validateBackendConfig(&config.Backend)...)
	errs = append(errs, validateToolConfig(&config.Tool)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)
	return errs
}

func validateBackendConfig(config *BackendConfig) []error {
	var errs []error

	if strings.TrimSpace(config.Suffix) == "" {
		errs = append(errs, ValidationError{Field: "backend.suffix", Message: "suffix is required"})
	} else if _, err := dn.Normalize(config.Suffix); err != nil {
		errs = append(errs, ValidationError{Field: "backend.suffix", Message: err.Error()})
	}

	if config.DataDir == "" {
		errs = append(errs, ValidationError{Field: "backend.dataDir", Message: "data directory is required"})
	} else if !filepath.IsAbs(config.DataDir) {
		errs = append(errs, ValidationError{Field: "backend.dataDir", Message: "must be an absolute path"})
	}

	if _, err := ParseSize(config.MmapSize); err != nil {
		errs = append(errs, ValidationError{Field: "backend.mmapSize", Message: err.Error()})
	}

	if config.MaxTxnWrites < 0 {
		errs = append(errs, ValidationError{Field: "backend.maxTxnWrites", Message: "must be non-negative"})
	}
	if config.LockTimeout < 0 {
		errs = append(errs, ValidationError{Field: "backend.lockTimeout", Message: "must be non-negative"})
	}

	if _, err := codec.ParseCompression(config.Compression); err != nil {
		errs = append(errs, ValidationError{Field: "backend.compression", Message: err.Error()})
	}

	if config.RangeThreshold < 0 {
		errs = append(errs, ValidationError{Field: "backend.rangeThreshold", Message: "must be non-negative"})
	}

	seen := make(map[string]bool, len(config.Indexes))
	for i, ic := range config.Indexes {
		field := fmt.Sprintf("backend.indexes[%d]", i)
		name := strings.ToLower(strings.TrimSpace(ic.Attribute))
		if name == "" {
			errs = append(errs, ValidationError{Field: field + ".attribute", Message: "attribute is required"})
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{Field: field + ".attribute", Message: fmt.Sprintf("%s is indexed twice", ic.Attribute)})
		}
		seen[name] = true

		if len(ic.Types) == 0 {
			errs = append(errs, ValidationError{Field: field + ".types", Message: "at least one index type is required"})
		} else if _, err := index.ParseTypes(ic.Types); err != nil {
			errs = append(errs, ValidationError{Field: field + ".types", Message: err.Error()})
		}
	}

	return errs
}

func validateToolConfig(config *ToolConfig) []error {
	var errs []error

	if config.WritesPerCommit < 1 {
		errs = append(errs, ValidationError{Field: "tool.writesPerCommit", Message: "must be at least 1"})
	}
	if config.Threads < 1 || config.Threads > MaxThreads {
		errs = append(errs, ValidationError{Field: "tool.threads", Message: fmt.Sprintf("must be between 1 and %d", MaxThreads)})
	}
	if config.UpgradeBatch < 1 {
		errs = append(errs, ValidationError{Field: "tool.upgradeBatch", Message: "must be at least 1"})
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}

var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses a size string like "256MB" or "1GB". The empty string
// is zero.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, nil
	}

	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size format: %s", s)
	}
	return n * mult, nil
}
