// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phlip9/sgx-panic-backtrace/internal/controller"
	"github.com/phlip9/sgx-panic-backtrace/unwind"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := parseArgs(nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, unwind.DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, controller.WalkerCallers, cfg.Walker)
	assert.Equal(t, "env,symbol,maps", cfg.BaseTechnique)
	assert.Empty(t, cfg.ImageBase)
	assert.Zero(t, cfg.Recurse)
	assert.False(t, cfg.VerboseMode)
}

func TestParseArgsSources(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "panic.conf")
	require.NoError(t, os.WriteFile(configFile,
		[]byte("walker framepointer\nrecurse 7\nunknown-option 1\n"), 0o600))

	t.Setenv("SGX_PANIC_BACKTRACE_MAX_DEPTH", "16")
	t.Setenv("SGX_PANIC_BACKTRACE_RECURSE", "5")

	cfg, err := parseArgs([]string{"-config", configFile, "-image-base", "0x400000", "-v"})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 16, cfg.MaxDepth)
	assert.Equal(t, controller.WalkerFramePointer, cfg.Walker)
	// The environment takes precedence over the config file.
	assert.Equal(t, 5, cfg.Recurse)
	assert.Equal(t, "0x400000", cfg.ImageBase)
	assert.True(t, cfg.VerboseMode)
	assert.Equal(t, configFile, cfg.ConfigFile)
}

func TestParseArgsMissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.conf")
	cfg, err := parseArgs([]string{"-config", missing, "-recurse", "2"})
	require.NoError(t, err)
	assert.Equal(t, missing, cfg.ConfigFile)
	assert.Equal(t, 2, cfg.Recurse)
}

func TestParseArgsInvalid(t *testing.T) {
	_, err := parseArgs([]string{"-max-depth", "deep"})
	require.Error(t, err)

	cfg, err := parseArgs([]string{"-walker", "dwarf"})
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}
