// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind // import "github.com/phlip9/sgx-panic-backtrace/unwind"

import "github.com/phlip9/sgx-panic-backtrace/libpf"

// Replay is a Walker that yields a previously captured stack instead of the
// current one, e.g. to re-emit a stack recorded elsewhere. skip is ignored:
// a recorded stack contains no walker frames.
type Replay []libpf.Address

var _ Walker = Replay(nil)

func (r Replay) Walk(t *Trace, _ int) {
	t.Reset()
	for _, pc := range r {
		if !t.push(pc) {
			return
		}
	}
}
