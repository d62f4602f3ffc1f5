// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package xsync provides thin wrappers around synchronization primitives for
// process-wide state that is written once and read many times.
package xsync // import "github.com/phlip9/sgx-panic-backtrace/libpf/xsync"
