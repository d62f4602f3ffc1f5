//go:build amd64 || arm64

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind // import "github.com/phlip9/sgx-panic-backtrace/unwind"

// getfp returns the frame pointer of its caller.
// Implemented in getfp_$GOARCH.s.
func getfp() uintptr
