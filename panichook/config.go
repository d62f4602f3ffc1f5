// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package panichook // import "github.com/phlip9/sgx-panic-backtrace/panichook"

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phlip9/sgx-panic-backtrace/imagebase"
	"github.com/phlip9/sgx-panic-backtrace/unwind"
)

// Config describes the hook to install.
type Config struct {
	// MaxDepth bounds the number of reported frames. Zero is valid and
	// produces reports without frames.
	MaxDepth int
	// Walker collects the return addresses.
	Walker unwind.Walker
	// Resolver provides the image base frames are made relative to.
	Resolver *imagebase.Resolver
	// Output receives the reports.
	Output io.Writer
	// CrashOutput, if set, is registered with the runtime to additionally
	// receive the traceback of fatal errors that bypass the hook.
	CrashOutput *os.File
}

// DefaultConfig reports up to unwind.DefaultMaxDepth frames walked by the
// Go runtime, relative to the process-wide image base, on stdout.
func DefaultConfig() Config {
	return Config{
		MaxDepth: unwind.DefaultMaxDepth,
		Walker:   unwind.Callers{},
		Resolver: imagebase.Shared(),
		Output:   os.Stdout,
	}
}

// Validate runs validations on the provided configuration, and returns errors
// if invalid values were provided.
func (cfg *Config) Validate() error {
	if cfg.MaxDepth < 0 || cfg.MaxDepth > unwind.MaxDepthLimit {
		return fmt.Errorf("max depth %d outside [0, %d]", cfg.MaxDepth, unwind.MaxDepthLimit)
	}
	if cfg.Walker == nil {
		return errors.New("no stack walker")
	}
	if cfg.Resolver == nil {
		return errors.New("no image base resolver")
	}
	if cfg.Output == nil {
		return errors.New("no report output")
	}
	return nil
}
