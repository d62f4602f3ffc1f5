// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package imagebase

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

// countingTechnique records how often it was asked to resolve.
type countingTechnique struct {
	calls atomic.Int32
	base  libpf.Address
	err   error
}

func (c *countingTechnique) Name() string { return "counting" }

func (c *countingTechnique) Resolve() (libpf.Address, error) {
	c.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return c.base, c.err
}

func TestResolverConcurrentFirstUse(t *testing.T) {
	technique := &countingTechnique{base: 0x400000}
	r := NewResolver(technique)
	barrier := make(chan struct{})

	const n = 64
	results := make([]libpf.Address, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			<-barrier
			base, err := r.Base()
			results[i] = base
			return err
		})
	}
	close(barrier)
	require.NoError(t, g.Wait())

	for _, base := range results {
		assert.Equal(t, libpf.Address(0x400000), base)
	}
	assert.Equal(t, int32(1), technique.calls.Load())
	assert.True(t, r.Resolved())
}

func TestResolverFailureIsDistinct(t *testing.T) {
	technique := &countingTechnique{err: ErrNotAvailable}
	r := NewResolver(technique)

	for range 3 {
		base, err := r.Base()
		require.ErrorIs(t, err, ErrUnresolved)
		require.ErrorIs(t, err, ErrNotAvailable)
		assert.Equal(t, libpf.Address(0), base)
	}
	assert.Equal(t, int32(1), technique.calls.Load())
	assert.False(t, r.Resolved())

	// A zero base is a successful resolution.
	zero := NewResolver(Fixed(0))
	base, err := zero.Base()
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0), base)
	assert.True(t, zero.Resolved())
}

func TestResolverRecoversPanickingTechnique(t *testing.T) {
	r := NewResolver(New("broken", func() (libpf.Address, error) {
		panic("boom")
	}))
	_, err := r.Base()
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, err.Error(), "boom")
}

func TestEnv(t *testing.T) {
	const name = "TEST_IMAGE_BASE"

	t.Setenv(name, "0x400000")
	base, err := Env(name).Resolve()
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0x400000), base)

	t.Setenv(name, "4096")
	base, err = Env(name).Resolve()
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0x1000), base)

	t.Setenv(name, "not a number")
	_, err = Env(name).Resolve()
	require.Error(t, err)

	_, err = Env("TEST_IMAGE_BASE_UNSET").Resolve()
	require.ErrorIs(t, err, ErrNotAvailable)
}

func TestChain(t *testing.T) {
	first := &countingTechnique{err: errors.New("first")}
	second := &countingTechnique{base: 0x1000}
	third := &countingTechnique{base: 0x2000}

	base, err := Chain(first, second, third).Resolve()
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0x1000), base)
	assert.Equal(t, int32(0), third.calls.Load())

	_, err = Chain(Unavailable(), first).Resolve()
	require.ErrorIs(t, err, ErrNotAvailable)
	assert.Contains(t, err.Error(), "first")

	_, err = Chain().Resolve()
	require.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, "counting,counting", Chain(first, second).Name())
}

func TestFromNames(t *testing.T) {
	technique, err := FromNames("env, symbol,maps")
	require.NoError(t, err)
	assert.Equal(t, "env,symbol,maps", technique.Name())

	technique, err = FromNames("none")
	require.NoError(t, err)
	assert.Equal(t, NameNone, technique.Name())

	_, err = FromNames("guess")
	require.Error(t, err)
	_, err = FromNames("")
	require.Error(t, err)
}

func TestSymbolAgreesWithMappings(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skipf("unsupported os %s", runtime.GOOS)
	}
	fromMaps, err := Mappings().Resolve()
	require.NoError(t, err)

	fromSymbol, err := Symbol().Resolve()
	if errors.Is(err, ErrSymbolNotFound) {
		t.Skipf("test binary without symbols: %v", err)
	}
	require.NoError(t, err)
	assert.Equal(t, fromMaps, fromSymbol)

	// Code of this package lies above the image base.
	pc, _, _, _ := runtime.Caller(0)
	assert.Greater(t, libpf.Address(pc), fromSymbol)
}
