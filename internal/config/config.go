// Package config provides configuration parsing and validation for the
// obakv backend and its tools.
package config

import "time"

// Config holds the complete configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Tool    ToolConfig    `yaml:"tool"`
	Logging LogConfig     `yaml:"logging"`
}

// BackendConfig describes one backend database.
type BackendConfig struct {
	// Suffix is the DN all entries of the backend live under.
	Suffix  string `yaml:"suffix"`
	DataDir string `yaml:"dataDir"`
	// MmapSize pre-sizes the memory map, e.g. "256MB".
	MmapSize     string        `yaml:"mmapSize"`
	NoSync       bool          `yaml:"noSync"`
	MaxTxnWrites int           `yaml:"maxTxnWrites"`
	LockTimeout  time.Duration `yaml:"lockTimeout"`
	// Compression of entry records: none, lz4 or zstd.
	Compression    string        `yaml:"compression"`
	RangeThreshold int           `yaml:"rangeThreshold"`
	Indexes        []IndexConfig `yaml:"indexes"`
}

// IndexConfig configures the index of one attribute.
type IndexConfig struct {
	Attribute string   `yaml:"attribute"`
	Types     []string `yaml:"types"`
}

// ToolConfig holds the settings of offline tool sessions.
type ToolConfig struct {
	// Quick batches WritesPerCommit operations per transaction and defers
	// index writes to the commit boundaries.
	Quick           bool `yaml:"quick"`
	WritesPerCommit int  `yaml:"writesPerCommit"`
	// Threads is the number of goroutines indexing an entry, the loader
	// included.
	Threads          int  `yaml:"threads"`
	UpgradeBatch     int  `yaml:"upgradeBatch"`
	StampOperational bool `yaml:"stampOperational"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}
