// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// sgx-panic-backtrace installs the panic hook and then panics, printing a
// backtrace of image relative offsets on stdout. Pipe it into a symbolizer:
//
//	sgx-panic-backtrace -recurse 3 | stack-trace-resolve ./sgx-panic-backtrace
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/phlip9/sgx-panic-backtrace/internal/controller"
	"github.com/phlip9/sgx-panic-backtrace/internal/log"
	"github.com/phlip9/sgx-panic-backtrace/libpf"
	"github.com/phlip9/sgx-panic-backtrace/process"
	"github.com/phlip9/sgx-panic-backtrace/vc"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode()))
}

func mainWithExitCode() exitCode {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		return parseError("Failure to parse arguments: %v", err)
	}

	if cfg.Version {
		fmt.Printf("%s\n", vc.Version())
		return exitSuccess
	}

	if cfg.VerboseMode {
		log.SetDebugLogger()
		// Dump the arguments in debug mode.
		cfg.Dump()
	}

	if err = cfg.Validate(); err != nil {
		return parseError("%v", err)
	}

	if cfg.ImageID {
		return printImageID()
	}

	ctlr := controller.New(cfg)
	if err = ctlr.Start(); err != nil {
		var exitErr controller.ErrorWithExitCode
		if errors.As(err, &exitErr) {
			log.Errorf("%v", exitErr)
			return exitCode(exitErr.Code())
		}
		return failure("Failed to start: %v", err)
	}

	// Does not return: the panic is reported and then terminates the process.
	ctlr.Run()
	return exitFailure
}

func printImageID() exitCode {
	exe, err := process.ExecutablePath()
	if err != nil {
		return failure("Failed to find executable: %v", err)
	}
	id, err := libpf.FileIDFromExecutableFile(exe)
	if err != nil {
		return failure("Failed to compute file ID of %s: %v", exe, err)
	}
	fmt.Printf("%s %s\n", id.UUIDString(), exe)
	return exitSuccess
}

func parseError(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}

func failure(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitFailure
}
