// Package log provides a public logging interface for github.com/phlip9/sgx-panic-backtrace.
//
// Diagnostics are written to stderr. Panic reports go to the configured
// report output (stdout by default) and never through this logger.
package log // import "github.com/phlip9/sgx-panic-backtrace/log"

import (
	"log/slog"

	"github.com/phlip9/sgx-panic-backtrace/internal/log"
)

// SetLevel configures the log level for the internal logger.
func SetLevel(level slog.Level) {
	log.SetLevelLogger(level)
}

// SetLogger configures the internal logger.
func SetLogger(l slog.Logger) {
	log.SetLogger(l)
}
