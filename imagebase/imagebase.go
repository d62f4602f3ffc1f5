// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package imagebase determines the address at which the running executable
// image is loaded, so that frame addresses can be reported relative to it.
//
// How the base is found depends on the environment, so it is a pluggable
// Technique. A Resolver runs its technique at most once per process and
// caches the outcome, including failure.
package imagebase // import "github.com/phlip9/sgx-panic-backtrace/imagebase"

import (
	"errors"
	"fmt"

	"github.com/phlip9/sgx-panic-backtrace/internal/log"
	"github.com/phlip9/sgx-panic-backtrace/libpf"
	"github.com/phlip9/sgx-panic-backtrace/libpf/xsync"
)

// ErrUnresolved wraps every error returned by Resolver.Base. A zero base
// returned without error is a valid, resolved base.
var ErrUnresolved = errors.New("image base unresolved")

// Technique is one way of finding the image base.
type Technique interface {
	// Name identifies the technique in logs and configuration.
	Name() string
	// Resolve returns the image base or an error if the technique does not
	// work in the current environment.
	Resolve() (libpf.Address, error)
}

type funcTechnique struct {
	name string
	fn   func() (libpf.Address, error)
}

func (t funcTechnique) Name() string                    { return t.name }
func (t funcTechnique) Resolve() (libpf.Address, error) { return t.fn() }

// New returns a Technique backed by fn.
func New(name string, fn func() (libpf.Address, error)) Technique {
	return funcTechnique{name: name, fn: fn}
}

// Resolver caches the image base found by a Technique.
type Resolver struct {
	technique Technique
	base      xsync.OnceValue[libpf.Address]
}

// NewResolver returns a Resolver that uses t on first use.
func NewResolver(t Technique) *Resolver {
	return &Resolver{technique: t}
}

// Technique returns the technique the resolver runs.
func (r *Resolver) Technique() Technique {
	return r.technique
}

// Base returns the image base. The first call runs the technique; later and
// concurrent calls observe the same result without running it again.
func (r *Resolver) Base() (libpf.Address, error) {
	return r.base.GetOrInit(r.resolve)
}

// Resolved reports whether Base has already been computed successfully.
func (r *Resolver) Resolved() bool {
	return r.base.Get() != nil
}

func (r *Resolver) resolve() (base libpf.Address, err error) {
	name := r.technique.Name()
	defer func() {
		// A technique must not turn a panic report into a second panic.
		if p := recover(); p != nil {
			base, err = 0, fmt.Errorf("%w: %s: panic: %v", ErrUnresolved, name, p)
		}
		if err != nil {
			log.Debugf("Failed to resolve image base: %v", err)
		}
	}()

	base, err = r.technique.Resolve()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrUnresolved, name, err)
	}
	log.Debugf("Resolved image base 0x%x using %s", base, name)
	return base, nil
}

var shared = NewResolver(Default())

// Shared returns the process-wide resolver using the Default technique.
func Shared() *Resolver {
	return shared
}
