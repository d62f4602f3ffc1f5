// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/phlip9/sgx-panic-backtrace/libpf"

import "os"

// PID represent Unix Process ID (pid_t)
type PID uint32

// Self returns the PID of the current process.
func Self() PID {
	return PID(os.Getpid())
}
