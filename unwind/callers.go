// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind // import "github.com/phlip9/sgx-panic-backtrace/unwind"

import (
	"runtime"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
)

// Callers walks the stack with the Go runtime's own unwinder. It works on
// every architecture the runtime supports and never reads invalid memory.
type Callers struct{}

var _ Walker = Callers{}

//go:noinline
func (Callers) Walk(t *Trace, skip int) {
	t.Reset()
	// Skip runtime.Callers and this method.
	n := runtime.Callers(max(skip, 0)+2, t.scratch)
	for _, pc := range t.scratch[:n] {
		if !t.push(libpf.Address(pc)) {
			return
		}
	}
}
