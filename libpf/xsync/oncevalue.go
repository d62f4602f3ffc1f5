// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package xsync // import "github.com/phlip9/sgx-panic-backtrace/libpf/xsync"

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrInitPanicked is returned by GetOrInit when the init function panicked.
var ErrInitPanicked = errors.New("init panicked")

// OnceValue runs an init function at most once and caches its result. A
// failed init, including one that panicked, is cached as well and not
// retried.
//
// Does not need explicit construction: simply do OnceValue[MyType]{}.
type OnceValue[T any] struct {
	once sync.Once
	done atomic.Bool
	val  T
	err  error
}

// GetOrInit returns the value, initializing it exactly once using the provided init function.
//
// Multiple concurrent calls are safe: only one will execute the init function
// and all of them observe its result. A panic in init does not propagate: it
// is returned as an error wrapping ErrInitPanicked.
func (o *OnceValue[T]) GetOrInit(init func() (T, error)) (T, error) {
	o.once.Do(func() {
		defer func() {
			if p := recover(); p != nil {
				var zero T
				o.val, o.err = zero, fmt.Errorf("%w: %v", ErrInitPanicked, p)
			}
			o.done.Store(true)
		}()
		o.val, o.err = init()
	})
	return o.val, o.err
}

// Get returns a copy of the cached value if init completed without error, nil otherwise.
// It never runs init.
func (o *OnceValue[T]) Get() *T {
	if !o.done.Load() || o.err != nil {
		return nil
	}
	val := o.val
	return &val
}
