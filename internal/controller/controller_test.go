// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
	"github.com/phlip9/sgx-panic-backtrace/panichook"
	"github.com/phlip9/sgx-panic-backtrace/unwind"
)

func validConfig() *Config {
	return &Config{
		MaxDepth:      unwind.DefaultMaxDepth,
		Walker:        WalkerCallers,
		BaseTechnique: "env,symbol,maps",
		Message:       "foo",
		Recurse:       3,
	}
}

func TestConfigValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "negative depth", mutate: func(c *Config) { c.MaxDepth = -1 }, wantErr: true},
		{name: "zero depth", mutate: func(c *Config) { c.MaxDepth = 0 }},
		{name: "unknown walker", mutate: func(c *Config) { c.Walker = "dwarf" }, wantErr: true},
		{name: "frame pointer walker", mutate: func(c *Config) { c.Walker = WalkerFramePointer }},
		{name: "unknown technique", mutate: func(c *Config) { c.BaseTechnique = "guess" },
			wantErr: true},
		{name: "no technique", mutate: func(c *Config) { c.BaseTechnique = "" }, wantErr: true},
		{name: "explicit base", mutate: func(c *Config) {
			c.BaseTechnique = ""
			c.ImageBase = "0x400000"
		}},
		{name: "bad explicit base", mutate: func(c *Config) { c.ImageBase = "base" },
			wantErr: true},
		{name: "negative recurse", mutate: func(c *Config) { c.Recurse = -1 }, wantErr: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestHookConfig(t *testing.T) {
	cfg := validConfig()
	cfg.ImageBase = "0x400000"
	cfg.Walker = WalkerFramePointer
	var out bytes.Buffer

	hookCfg, err := New(cfg, WithOutput(&out)).HookConfig()
	require.NoError(t, err)
	require.NoError(t, hookCfg.Validate())

	assert.Equal(t, unwind.DefaultMaxDepth, hookCfg.MaxDepth)
	assert.IsType(t, &unwind.FramePointer{}, hookCfg.Walker)
	assert.Equal(t, "fixed", hookCfg.Resolver.Technique().Name())
	base, err := hookCfg.Resolver.Base()
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0x400000), base)
	assert.Same(t, &out, hookCfg.Output)
}

func TestRun(t *testing.T) {
	cfg := validConfig()
	cfg.BaseTechnique = "none"
	cfg.Message = "demo failure"
	var out bytes.Buffer

	ctlr := New(cfg, WithOutput(&out))
	require.NoError(t, ctlr.Start())
	require.True(t, panichook.Installed())

	escaped := func() (r any) {
		defer func() { r = recover() }()
		ctlr.Run()
		return nil
	}()
	require.IsType(t, &panichook.ReportedPanic{}, escaped)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "enclave: panicked at 'demo failure', "))
	assert.True(t, strings.HasSuffix(lines[0], " [absolute addresses]"))
	assert.Equal(t, "stack backtrace:", lines[1])
	// Recover, the panic, descend four times, Run and the test itself.
	assert.Greater(t, len(lines)-2, cfg.Recurse+3)

	assert.Equal(t, uint64(1), ctlr.Stats().ReportsEmitted)
	assert.Equal(t, uint64(1), ctlr.Stats().BaseUnresolved)
}

func TestErrorWithExitCode(t *testing.T) {
	err := NewErrorWithExitCode(assert.AnError, 2)
	assert.Equal(t, 2, err.Code())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStartInvalid(t *testing.T) {
	cfg := validConfig()
	cfg.Walker = "dwarf"

	err := New(cfg).Start()
	var exitErr ErrorWithExitCode
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitInvalidConfig, exitErr.Code())
}
