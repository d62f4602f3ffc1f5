// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/phlip9/sgx-panic-backtrace/internal/controller"

import (
	"errors"
	"flag"
	"fmt"

	"github.com/phlip9/sgx-panic-backtrace/imagebase"
	"github.com/phlip9/sgx-panic-backtrace/internal/log"
	"github.com/phlip9/sgx-panic-backtrace/unwind"
)

// Walker names accepted by Config.Walker.
const (
	WalkerCallers      = "callers"
	WalkerFramePointer = "framepointer"
)

type Config struct {
	MaxDepth      int
	Walker        string
	BaseTechnique string
	ImageBase     string
	Message       string
	Recurse       int
	VerboseMode   bool
	Version       bool
	ImageID       bool
	ConfigFile    string

	Fs *flag.FlagSet
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	log.Debug("Config:")
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		log.Debug(fmt.Sprintf("%s: %v", f.Name, f.Value))
	})
}

// Validate runs validations on the provided configuration, and returns errors
// if invalid values were provided.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.MaxDepth < 0 || cfg.MaxDepth > unwind.MaxDepthLimit {
		errs = append(errs, fmt.Errorf("max-depth %d outside [0, %d]",
			cfg.MaxDepth, unwind.MaxDepthLimit))
	}
	switch cfg.Walker {
	case WalkerCallers, WalkerFramePointer:
	default:
		errs = append(errs, fmt.Errorf("unknown walker %q", cfg.Walker))
	}
	if cfg.ImageBase != "" {
		if _, err := imagebase.ParseAddress(cfg.ImageBase); err != nil {
			errs = append(errs, err)
		}
	} else if _, err := imagebase.FromNames(cfg.BaseTechnique); err != nil {
		errs = append(errs, err)
	}
	if cfg.Recurse < 0 {
		errs = append(errs, fmt.Errorf("recurse %d is negative", cfg.Recurse))
	}
	return errors.Join(errs...)
}
