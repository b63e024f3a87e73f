// Package logging provides the structured logger used by every obakv
// component and the obatool command.
//
// # Creating a Logger
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/obakv/load.log",
//	})
//
// Tests use logging.NewNop() or logging.NewWriter with a bytes.Buffer.
//
// # Structured Logging
//
// Messages carry key-value pairs. Loggers derived with WithFields or Named
// share the parent's output:
//
//	tool := logger.Named("tool").WithFields("mode", "quick")
//	tool.Info("batch committed", "entries", 500, "last_id", 1500)
//
// Text format:
//
//	2026-10-19T10:30:00Z [info] tool: batch committed mode=quick entries=500 last_id=1500
//
// JSON format:
//
//	{"component":"tool","entries":500,"last_id":1500,"level":"info","mode":"quick","msg":"batch committed","ts":"2026-10-19T10:30:00Z"}
//
// Error values passed as field values are logged through their Error method.
package logging
