// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package libpf holds the small value types shared by the unwinder, the image
// base resolver and the reporter.
package libpf // import "github.com/phlip9/sgx-panic-backtrace/libpf"
