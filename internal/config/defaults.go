package config

import "time"

// DefaultWritesPerCommit is the quick mode commit batch.
const DefaultWritesPerCommit = 500

// DefaultConfig returns a Config with the default values.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			DataDir:        "/var/lib/obakv",
			LockTimeout:    5 * time.Second,
			Compression:    "lz4",
			RangeThreshold: 65536,
			Indexes: []IndexConfig{
				{Attribute: "objectClass", Types: []string{"eq"}},
			},
		},
		Tool: ToolConfig{
			WritesPerCommit:  DefaultWritesPerCommit,
			Threads:          1,
			UpgradeBatch:     1000,
			StampOperational: true,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
