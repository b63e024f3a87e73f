// Package config loads the YAML configuration of obakv.
//
// # Configuration Structure
//
//	type Config struct {
//	    Backend BackendConfig // database location, suffix, indexes
//	    Tool    ToolConfig    // bulk load and reindex sessions
//	    Logging LogConfig     // log level, format and output
//	}
//
// # Loading Configuration
//
//	cfg, err := config.LoadConfig("/etc/obakv/obakv.yaml")
//	if err != nil {
//	    return err
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    for _, e := range errs {
//	        fmt.Fprintln(os.Stderr, e)
//	    }
//	    os.Exit(1)
//	}
//
// Values may reference the environment as ${VAR} or ${VAR:-default}. A .env
// file next to the configuration file is loaded first; variables already set
// in the process environment win.
//
// # Example
//
//	backend:
//	  suffix: "dc=example,dc=com"
//	  dataDir: "/var/lib/obakv"
//	  compression: zstd
//	  indexes:
//	    - attribute: objectClass
//	      types: [eq]
//	    - attribute: cn
//	      types: [eq, sub]
//	tool:
//	  quick: true
//	  writesPerCommit: 500
//	  threads: 4
//	logging:
//	  level: info
package config
