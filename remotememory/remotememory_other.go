//go:build !linux

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package remotememory // import "github.com/phlip9/sgx-panic-backtrace/remotememory"

import "errors"

func (selfMemory) ReadAt([]byte, int64) (int, error) {
	return 0, errors.ErrUnsupported
}
