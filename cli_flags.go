// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3"

	"github.com/phlip9/sgx-panic-backtrace/imagebase"
	"github.com/phlip9/sgx-panic-backtrace/internal/controller"
	"github.com/phlip9/sgx-panic-backtrace/unwind"
)

const (
	// Default values for CLI flags
	defaultArgMaxDepth      = unwind.DefaultMaxDepth
	defaultArgWalker        = controller.WalkerCallers
	defaultArgBaseTechnique = imagebase.NameEnv + "," + imagebase.NameSymbol + "," +
		imagebase.NameMappings
	defaultArgMessage = "explicit panic"
	defaultArgRecurse = 0

	envVarPrefix = "SGX_PANIC_BACKTRACE"
)

// Help strings for command line arguments
var (
	maxDepthHelp = fmt.Sprintf("Maximum number of frames in a backtrace, at most %d.",
		unwind.MaxDepthLimit)
	walkerHelp = fmt.Sprintf("Stack walker to use: %s or %s.",
		controller.WalkerCallers, controller.WalkerFramePointer)
	baseTechniqueHelp = fmt.Sprintf("Comma-separated list of techniques to find the image "+
		"base, tried in order: %s (reads %s), %s, %s or %s.",
		imagebase.NameEnv, imagebase.DefaultEnvVar, imagebase.NameSymbol,
		imagebase.NameMappings, imagebase.NameNone)
	imageBaseHelp = "Explicit image base address. Overrides -base-technique."
	messageHelp   = "Message of the panic raised after installing the hook."
	recurseHelp   = "Number of nested calls to make before panicking."
	imageIDHelp   = "Print the file ID of this executable and exit."
	configHelp    = "Path to a configuration file with one 'flag value' pair per line."
	verboseHelp   = "Enable verbose logging on stderr."
	versionHelp   = "Show version."
)

func parseArgs(arguments []string) (*controller.Config, error) {
	var args controller.Config

	fs := flag.NewFlagSet("sgx-panic-backtrace", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.StringVar(&args.BaseTechnique, "base-technique", defaultArgBaseTechnique,
		baseTechniqueHelp)

	fs.StringVar(&args.ConfigFile, "config", "", configHelp)

	fs.BoolVar(&args.ImageID, "image-id", false, imageIDHelp)
	fs.StringVar(&args.ImageBase, "image-base", "", imageBaseHelp)

	fs.IntVar(&args.MaxDepth, "max-depth", defaultArgMaxDepth, maxDepthHelp)
	fs.StringVar(&args.Message, "message", defaultArgMessage, messageHelp)

	fs.IntVar(&args.Recurse, "recurse", defaultArgRecurse, recurseHelp)

	fs.BoolVar(&args.VerboseMode, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.VerboseMode, "verbose", false, verboseHelp)
	fs.BoolVar(&args.Version, "version", false, versionHelp)

	fs.StringVar(&args.Walker, "walker", defaultArgWalker, walkerHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}

	args.Fs = fs

	return &args, ff.Parse(fs, arguments,
		ff.WithEnvVarPrefix(envVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current
		// binary does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	)
}
