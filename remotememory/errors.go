// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package remotememory // import "github.com/phlip9/sgx-panic-backtrace/remotememory"

import "errors"

var (
	// ErrNoReader is returned when reading from a zero RemoteMemory.
	ErrNoReader = errors.New("no memory reader")
	// ErrUnreadable is returned when a range of memory cannot be read in full.
	ErrUnreadable = errors.New("memory not readable")
)
